package out

import (
	"context"
	"time"
)

// Identity 验证通过后附着在连接上的身份
type Identity struct {
	UserID          string
	Roles           []string
	AuthenticatedAt time.Time
}

// TokenVerifier 身份校验协作方，token -> 身份
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
