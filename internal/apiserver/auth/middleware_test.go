package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"careerhub/internal/shared/model"
)

func TestIsPublic(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"登录", "/api/v1/auth/login", true},
		{"注册", "/api/v1/auth/register", true},
		{"找回密码", "/api/v1/auth/forgot-password", true},
		{"验证码消费", "/api/v1/auth/verify-otp", true},
		{"重置密码", "/api/v1/auth/reset-password", true},
		{"招聘者注册", "/api/v1/recruiters/register", true},
		{"招聘者登录", "/api/v1/recruiters/login", true},
		{"健康检查", "/healthz", true},
		{"指标", "/metrics", true},

		{"当前用户需要令牌", "/api/v1/auth/me", false},
		{"改密需要令牌", "/api/v1/auth/password", false},
		{"发验证码需要令牌", "/api/v1/auth/send-otp", false},
		{"动态需要令牌", "/api/v1/posts", false},
		{"职位需要令牌", "/api/v1/jobs", false},
		{"通知长连接需要令牌", "/ws/notifications", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPublic(tt.path); got != tt.want {
				t.Errorf("isPublic(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	t.Run("cookie 优先", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "cookie-token"})
		r.Header.Set("Authorization", "Bearer header-token")
		if got := ExtractToken(r); got != "cookie-token" {
			t.Errorf("ExtractToken = %q, want cookie-token", got)
		}
	})
	t.Run("退回 bearer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
		r.Header.Set("Authorization", "Bearer header-token")
		if got := ExtractToken(r); got != "header-token" {
			t.Errorf("ExtractToken = %q, want header-token", got)
		}
	})
	t.Run("无令牌", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
		if got := ExtractToken(r); got != "" {
			t.Errorf("ExtractToken = %q, want empty", got)
		}
	})
}

func newTestMiddleware(t *testing.T) (*Middleware, *fakeStore, Config) {
	t.Helper()
	cfg := testConfig()
	store := newFakeStore()
	mw := NewMiddleware(cfg, store, &fakeRecruiterStore{})
	return mw, store, cfg
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	var hit bool
	w := httptest.NewRecorder()
	mw.Wrap(okHandler(&hit)).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if hit {
		t.Error("无令牌请求不应到达 handler")
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	var hit bool
	r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	mw.Wrap(okHandler(&hit)).ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMiddlewareRejectsDeletedPrincipal(t *testing.T) {
	mw, _, cfg := newTestMiddleware(t)
	token, err := GenerateToken(cfg, "usr-gone", RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	var hit bool
	r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mw.Wrap(okHandler(&hit)).ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMiddlewareRejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	mw, store, cfg := newTestMiddleware(t)
	user := &model.User{ID: "usr-1", Email: "a@example.com", Username: "alice"}
	if err := store.CreateUser(nil, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := GenerateToken(cfg, "usr-1", RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	// 改密时间设在签发之后，令牌应被判定为失效
	store.mu.Lock()
	store.users["usr-1"].PasswordChangedAt = claims.IssuedAt.Add(time.Second)
	store.mu.Unlock()

	var hit bool
	r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mw.Wrap(okHandler(&hit)).ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if hit {
		t.Error("改密后旧令牌不应放行")
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	mw, store, cfg := newTestMiddleware(t)
	if err := store.CreateUser(nil, &model.User{ID: "usr-1", Email: "a@example.com", Username: "alice"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := GenerateToken(cfg, "usr-1", RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	r := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	w := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got == nil || got.ID != "usr-1" || got.Role != RoleUser {
		t.Errorf("principal = %+v, want usr-1/user", got)
	}
}

func TestMiddlewarePassesPublicRoutes(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	var hit bool
	w := httptest.NewRecorder()
	mw.Wrap(okHandler(&hit)).ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/auth/login", nil))
	if !hit {
		t.Error("公开路由应直接放行")
	}
}
