package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/ports/out"
)

// ErrTokenRequired 四个位置都找不到凭证
var ErrTokenRequired = errors.New("authentication token required")

// AuthGate 连接准入
// 从握手请求提取凭证、交给身份校验协作方，成功则得到身份与设备信息
type AuthGate struct {
	verifier out.TokenVerifier
}

// NewAuthGate 创建准入网关
func NewAuthGate(verifier out.TokenVerifier) *AuthGate {
	return &AuthGate{verifier: verifier}
}

// Admit 校验一条待准入的连接
// 提取或校验过程中的任何异常都收敛到拒绝路径，绝不让接入循环崩溃
func (g *AuthGate) Admit(ctx context.Context, r *http.Request) (identity *out.Identity, device *entity.DeviceInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("auth gate panic", zap.Any("recover", rec))
			identity, device = nil, nil
			err = fmt.Errorf("authentication failed")
		}
	}()

	token := ExtractToken(r)
	if token == "" {
		return nil, nil, ErrTokenRequired
	}

	identity, err = g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("token verification failed: %w", err)
	}
	// 校验通过但缺主体ID，等同校验失败
	if identity == nil || identity.UserID == "" {
		return nil, nil, errors.New("invalid token payload")
	}
	if identity.AuthenticatedAt.IsZero() {
		identity.AuthenticatedAt = time.Now()
	}

	return identity, DetectDevice(r), nil
}

// ExtractToken 按严格优先级提取凭证，第一个非空命中即返回：
// 握手认证头 → query参数 → Authorization Bearer → cookie
func ExtractToken(r *http.Request) string {
	if token := r.Header.Get("X-Auth-Token"); token != "" {
		return token
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// DetectDevice 从User-Agent推断设备信息
// 平板要在手机之前判断，平板UA往往也带mobile字样
// 推断结果只作展示提示，不做任何安全判断
func DetectDevice(r *http.Request) *entity.DeviceInfo {
	ua := strings.ToLower(r.UserAgent())

	deviceType := entity.DeviceTypeDesktop
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		deviceType = entity.DeviceTypeTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		deviceType = entity.DeviceTypeMobile
	}

	// Edge和Chrome的UA里都带safari，匹配顺序有讲究
	var browser string
	switch {
	case strings.Contains(ua, "edg"):
		browser = "edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		browser = "opera"
	case strings.Contains(ua, "firefox"):
		browser = "firefox"
	case strings.Contains(ua, "chrome"):
		browser = "chrome"
	case strings.Contains(ua, "safari"):
		browser = "safari"
	}

	return &entity.DeviceInfo{
		Type:    deviceType,
		Browser: browser,
		IP:      clientIP(r),
	}
}

// clientIP 取客户端IP，代理头优先
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
