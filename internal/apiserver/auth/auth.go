// Package auth 用户认证：JWT 令牌管理、密码哈希、HTTP 中间件、验证码流程
package auth

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// contextKey context 键类型
type contextKey string

const ctxKeyPrincipal contextKey = "auth_principal"

// TokenCookieName 承载令牌的 httpOnly Cookie 名称
const TokenCookieName = "token"

// Role 主体角色
type Role string

const (
	RoleUser      Role = "user"
	RoleRecruiter Role = "recruiter"
)

// Principal 从 JWT 解析出的主体信息
type Principal struct {
	ID       string
	Role     Role
	IssuedAt time.Time
}

// Config 认证配置
type Config struct {
	JWTSecret         string
	UserTokenTTL      time.Duration // 默认 24h
	RecruiterTokenTTL time.Duration // 默认 30d
	CookieSecure      bool
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		JWTSecret:         "",
		UserTokenTTL:      24 * time.Hour,
		RecruiterTokenTTL: 30 * 24 * time.Hour,
	}
}

// TTLFor 按角色返回令牌有效期
func (c Config) TTLFor(role Role) time.Duration {
	if role == RoleRecruiter {
		return c.RecruiterTokenTTL
	}
	return c.UserTokenTTL
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码（bcrypt 内部为常数时间比较）
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role,omitempty"`
}

// GenerateToken 为主体签发令牌，有效期按角色区分
func GenerateToken(cfg Config, principalID string, role Role) (string, error) {
	return GenerateTokenWithTTL(cfg, principalID, role, cfg.TTLFor(role))
}

// GenerateTokenWithTTL 指定有效期签发令牌
func GenerateTokenWithTTL(cfg Config, principalID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并验证 JWT
// 签名算法固定为 HMAC，拒绝其他算法（防算法混淆攻击）
func ParseToken(cfg Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role == "" {
		claims.Role = RoleUser
	}
	return claims, nil
}

// ============================================================================
// Cookie
// ============================================================================

// SetTokenCookie 写入 httpOnly 令牌 Cookie
func SetTokenCookie(w http.ResponseWriter, cfg Config, token string, role Role) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TTLFor(role).Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie 清除令牌 Cookie
func ClearTokenCookie(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithPrincipal 将认证主体注入 context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// GetPrincipal 从 context 获取认证主体
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*Principal)
	return p
}

// ============================================================================
// 标识符解析
// ============================================================================

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsEmail 标识符是否为邮箱形态
// 登录标识符按此区分：邮箱形态按 email 解析，其余按 username 解析
func IsEmail(identifier string) bool {
	return emailRegex.MatchString(identifier)
}
