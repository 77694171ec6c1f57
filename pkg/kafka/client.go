// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"finsight-go/internal/config"
	"finsight-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// QueryAnsweredEvent 是一次成功问答后发出的分析事件。
type QueryAnsweredEvent struct {
	Query      string    `json:"query"`
	QueryType  string    `json:"queryType"`
	Rule       string    `json:"rule"`
	Sources    []string  `json:"sources,omitempty"`
	AnsweredAt time.Time `json:"answeredAt"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceQueryEvent 发送一个问答事件到 Kafka。
// 调用方按尽力而为处理返回的错误，发送失败不影响问答流程。
func ProduceQueryEvent(ctx context.Context, event QueryAnsweredEvent) error {
	if producer == nil {
		return errors.New("kafka producer is not initialized")
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return producer.WriteMessages(ctx,
		kafka.Message{
			Value: eventBytes,
		},
	)
}
