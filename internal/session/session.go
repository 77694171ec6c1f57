// Package session 维护单个聊天连接的会话状态。
package session

import (
	"strconv"
	"sync"
	"time"

	"finsight-go/internal/model"
)

// Session 持有一条连接的对话历史与忙标志。
// 历史只追加，不提供删除或编辑；连接断开即全部丢弃。
type Session struct {
	ID string

	mu       sync.Mutex
	busy     bool
	seq      int
	messages []model.ChatMessage
}

// New 创建一个空会话。
func New(id string) *Session {
	return &Session{ID: id}
}

// TryAcquire 尝试占用忙标志。已有请求在途时返回 false，
// 调用方应直接拒绝本次提交，而不是排队。
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release 释放忙标志。
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Append 追加一条消息并补全 ID 与时间戳，返回写入后的消息。
func (s *Session) Append(role, content string, sources []string) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg := model.ChatMessage{
		ID:        s.ID + "-" + strconv.Itoa(s.seq),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Sources:   sources,
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages 返回当前对话历史的副本。
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
