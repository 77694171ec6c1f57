// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理聊天会话令牌的生成和验证。
type JWTManager struct {
	secretKey    []byte        // secretKey 用于签名和验证 token 的密钥
	chatTokenDur time.Duration // chatTokenDur 定义了聊天会话令牌的有效期
}

// ChatClaims 定义了存储在聊天会话令牌中的数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type ChatClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// secret: 用于签名的密钥字符串。
// chatTokenExpireMinutes: 聊天会话令牌的过期时间（分钟）。
func NewJWTManager(secret string, chatTokenExpireMinutes int) *JWTManager {
	return &JWTManager{
		secretKey:    []byte(secret),
		chatTokenDur: time.Minute * time.Duration(chatTokenExpireMinutes),
	}
}

// GenerateChatToken 为一次新的聊天会话生成令牌，返回令牌与会话 ID。
func (m *JWTManager) GenerateChatToken() (string, string, error) {
	sessionID := GenerateRandomString(16)
	claims := ChatClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.chatTokenDur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", "", err
	}
	return signed, sessionID, nil
}

// VerifyChatToken 验证给定的令牌字符串。
// 如果令牌有效，返回 ChatClaims 对象；签名不匹配或已过期则返回错误。
func (m *JWTManager) VerifyChatToken(tokenString string) (*ChatClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ChatClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ChatClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
