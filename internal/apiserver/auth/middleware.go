package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"careerhub/internal/shared/model"
)

// UserLoader 中间件加载用户所需的最小接口
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RecruiterLoader 中间件加载招聘者所需的最小接口
type RecruiterLoader interface {
	GetRecruiterByID(ctx context.Context, id string) (*model.Recruiter, error)
}

// Middleware 会话中间件：解析令牌、加载主体、校验密码变更时间
type Middleware struct {
	cfg        Config
	users      UserLoader
	recruiters RecruiterLoader
}

// NewMiddleware 创建会话中间件
func NewMiddleware(cfg Config, users UserLoader, recruiters RecruiterLoader) *Middleware {
	return &Middleware{cfg: cfg, users: users, recruiters: recruiters}
}

// publicPrefixes 免认证路径前缀
var publicPrefixes = []string{
	"/api/v1/auth/register",
	"/api/v1/auth/login",
	"/api/v1/auth/forgot-password",
	"/api/v1/auth/verify-otp",
	"/api/v1/auth/reset-password",
	"/api/v1/recruiters/register",
	"/api/v1/recruiters/login",
	"/healthz",
	"/metrics",
	"/openapi.yaml",
	"/docs",
}

func isPublic(path string) bool {
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// ExtractToken 从请求提取令牌：优先 Cookie，其次 Authorization Bearer
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Wrap 包装 handler，对非公开路径要求有效会话
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := ExtractToken(r)
		if tokenString == "" {
			unauthorized(w, "missing token")
			return
		}

		claims, err := ParseToken(m.cfg, tokenString)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		p := &Principal{ID: claims.Subject, Role: claims.Role, IssuedAt: claims.IssuedAt.Time}

		// 加载主体并校验令牌未因改密失效
		switch claims.Role {
		case RoleRecruiter:
			rec, err := m.recruiters.GetRecruiterByID(r.Context(), claims.Subject)
			if err != nil {
				log.Printf("[auth] load recruiter %s: %v", claims.Subject, err)
				unauthorized(w, "invalid session")
				return
			}
			if rec == nil {
				unauthorized(w, "principal no longer exists")
				return
			}
			if stale(rec.PasswordChangedAt, p.IssuedAt) {
				unauthorized(w, "token issued before password change")
				return
			}
		default:
			user, err := m.users.GetUserByID(r.Context(), claims.Subject)
			if err != nil {
				log.Printf("[auth] load user %s: %v", claims.Subject, err)
				unauthorized(w, "invalid session")
				return
			}
			if user == nil {
				unauthorized(w, "principal no longer exists")
				return
			}
			if stale(user.PasswordChangedAt, p.IssuedAt) {
				unauthorized(w, "token issued before password change")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// stale 密码变更时间晚于令牌签发时间则会话失效
func stale(passwordChangedAt time.Time, issuedAt time.Time) bool {
	if passwordChangedAt.IsZero() {
		return false
	}
	return passwordChangedAt.After(issuedAt)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
