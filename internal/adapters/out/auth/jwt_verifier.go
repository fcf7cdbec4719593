package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/caixinha/realtime/internal/ports/out"
	"github.com/caixinha/realtime/pkg/jwt"
)

// JWTVerifier 基于本地验签的身份校验实现
type JWTVerifier struct {
	manager jwt.Manager
}

func NewJWTVerifier(manager jwt.Manager) out.TokenVerifier {
	return &JWTVerifier{manager: manager}
}

// Verify 验签并提取身份，缺主体ID视为非法载荷
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*out.Identity, error) {
	claims, err := v.manager.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return &out.Identity{
		UserID:          claims.Subject,
		Roles:           claims.Roles,
		AuthenticatedAt: time.Now(),
	}, nil
}
