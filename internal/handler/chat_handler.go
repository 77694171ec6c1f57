package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"finsight-go/internal/model"
	"finsight-go/internal/service"
	"finsight-go/internal/session"
	"finsight-go/pkg/log"
	"finsight-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接。
// 一条连接对应一个会话：对话历史与忙标志都随连接存亡。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// GetWebsocketToken 为新的聊天会话签发短时令牌，用于 WebSocket 握手。
func (h *ChatHandler) GetWebsocketToken(c *gin.Context) {
	signed, sessionID, err := h.jwtManager.GenerateChatToken()
	if err != nil {
		log.Error("GetWebsocketToken: failed to generate token", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "生成会话令牌失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"token": signed, "sessionId": sessionID},
	})
}

// Handle 处理一个传入的 WebSocket 连接。
// 每条文本消息视为一个问题；在途请求未完成时新的提交被直接丢弃。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyChatToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，会话: %s", claims.SessionID)

	sess := session.New(claims.SessionID)

	// 回答在独立 goroutine 中写回，与读循环里的忙提示共用一把写锁
	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		query := strings.TrimSpace(string(message))
		if query == "" {
			continue
		}

		if !sess.TryAcquire() {
			// 忙标志生效：不排队，直接丢弃本次提交
			_ = writeJSON(gin.H{"type": "busy", "message": "上一条问题仍在处理中，本次提交已忽略"})
			continue
		}

		userMsg := sess.Append("user", query, nil)
		if err := writeJSON(messagePayload(userMsg)); err != nil {
			log.Warnf("回写用户消息失败: %v", err)
		}

		// 问答在独立 goroutine 中运行，读循环保持可用以拒绝并发提交。
		// 提交后不支持取消，请求运行到完成或失败。
		go func(query string) {
			defer sess.Release()

			answer, sources, err := h.chatService.Answer(context.Background(), query)
			if err != nil {
				log.Errorf("处理问答失败: %v", err)
				answer = service.ClassifyModelError(err)
				sources = nil
			}

			msg := sess.Append("assistant", answer, sources)
			if err := writeJSON(messagePayload(msg)); err != nil {
				log.Warnf("回写助手消息失败: %v", err)
			}
		}(query)
	}
}

// messagePayload 将会话消息包装为下发给前端的 JSON 结构。
func messagePayload(m model.ChatMessage) gin.H {
	return gin.H{
		"type":      "message",
		"id":        m.ID,
		"role":      m.Role,
		"content":   m.Content,
		"sources":   m.Sources,
		"timestamp": m.Timestamp.UnixMilli(),
	}
}
