// Package auth 校验外部账号系统签发的 RS256 访问令牌。本服务不签发令牌。
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
)

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenVerifier 只持有公钥。
type TokenVerifier struct {
	publicKey *rsa.PublicKey
}

// NewTokenVerifier 解析 PEM 公钥。
func NewTokenVerifier(publicKeyPEM []byte) (*TokenVerifier, error) {
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	return &TokenVerifier{publicKey: publicKey}, nil
}

// NewTokenVerifierFromConfig 优先使用内联 PEM，其次读取文件。
func NewTokenVerifierFromConfig(cfg config.AuthConfig) (*TokenVerifier, error) {
	pem := strings.TrimSpace(cfg.PublicKeyPEM)
	if pem != "" {
		// 环境变量中的换行常被写成字面 \n
		return NewTokenVerifier([]byte(strings.ReplaceAll(pem, `\n`, "\n")))
	}
	if cfg.PublicKeyPath == "" {
		return nil, errors.New("auth public key is not configured")
	}
	data, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}
	return NewTokenVerifier(data)
}

// ValidateToken 解析并验证 JWT。
func (v *TokenVerifier) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateAccessToken 额外要求 token_type 为 access。
func (v *TokenVerifier) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}
