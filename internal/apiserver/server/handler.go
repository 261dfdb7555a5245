// Package server 路由配置与中间件链
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包。
// 中间件链（自外向内）：CORS → 认证 → 指标 → 业务路由。
// WebSocket 路由绕过指标中间件但仍经过认证。
package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"careerhub/api"
	"careerhub/internal/apiserver/auth"
	"careerhub/internal/apiserver/job"
	"careerhub/internal/apiserver/notify"
	"careerhub/internal/apiserver/post"
	"careerhub/internal/apiserver/recruiter"
	"careerhub/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查与指标:
//   - GET  /healthz  - 服务健康检查
//   - GET  /metrics  - Prometheus 指标
//
// 认证 (Auth):
//   - POST /api/v1/auth/register        - 用户注册
//   - POST /api/v1/auth/login           - 用户登录
//   - POST /api/v1/auth/logout          - 退出登录
//   - GET  /api/v1/auth/me              - 当前用户
//   - PUT  /api/v1/auth/password        - 修改密码
//   - POST /api/v1/auth/forgot-password - 找回密码
//   - POST /api/v1/auth/send-otp        - 发送验证码
//   - POST /api/v1/auth/verify-otp      - 校验验证码
//   - POST /api/v1/auth/reset-password  - 重置密码
//
// 用户 (User):
//   - GET  /api/v1/users/{id}                    - 公开资料
//   - PUT  /api/v1/users/me/profile              - 更新资料
//   - POST /api/v1/users/{id}/follow             - 关注/取关
//   - GET  /api/v1/users/{id}/followers          - 粉丝列表
//   - GET  /api/v1/users/{id}/following          - 关注列表
//   - GET  /api/v1/users/me/notifications        - 通知收件箱
//   - POST /api/v1/users/me/avatar|resume        - 上传头像/简历
//
// 动态 (Post):
//   - POST/GET /api/v1/posts                 - 发布/列出动态
//   - GET/DELETE /api/v1/posts/{id}          - 详情/删除
//   - POST /api/v1/posts/{id}/like           - 点赞/取消
//   - POST/GET /api/v1/posts/{id}/comments   - 评论
//   - DELETE /api/v1/comments/{id}           - 删除评论
//
// 职位 (Job):
//   - POST/GET /api/v1/jobs                  - 发布/列出职位
//   - GET/PUT/DELETE /api/v1/jobs/{id}       - 详情/更新/删除
//   - POST /api/v1/jobs/{id}/apply           - 投递申请
//   - GET  /api/v1/jobs/{id}/applications    - 职位的申请列表
//   - GET  /api/v1/users/me/applications     - 我的申请
//   - PATCH /api/v1/applications/{id}        - 更新申请状态
//
// 招聘者与公司 (Recruiter / Company):
//   - POST /api/v1/recruiters/register|login - 招聘者注册/登录
//   - GET  /api/v1/recruiters/me             - 当前招聘者
//   - PUT  /api/v1/recruiters/password       - 修改密码
//   - POST/GET /api/v1/companies             - 公司
//   - GET/PUT /api/v1/companies/{id}         - 公司详情/更新
//
// WebSocket:
//   - GET /ws/notifications - 通知实时推送
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /healthz", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// OpenAPI 文档与在线文档页面
	mux.HandleFunc("GET /openapi.yaml", serveOpenAPI)
	mux.HandleFunc("GET /docs", serveDocs)

	// Auth 接口（用户注册 / 登录 / 验证码流程）
	verifier := auth.NewVerifier(h.store, h.email, h.sms)
	authHandler := auth.NewHandler(h.store, verifier, h.authCfg)
	authHandler.RegisterRoutes(mux)

	// User 接口（资料 / 关注 / 通知 / 文件上传）
	// 对象存储未配置时传 nil 接口，上传接口返回 503
	var objects user.ObjectStore
	if h.objects != nil {
		objects = h.objects
	}
	userHandler := user.NewHandler(h.store, h.notifier, objects)
	userHandler.RegisterRoutes(mux)

	// Post 接口（动态 / 点赞 / 评论）
	postHandler := post.NewHandler(h.store, h.store, h.notifier)
	postHandler.RegisterRoutes(mux)

	// Job 接口（职位 / 申请）
	jobHandler := job.NewHandler(h.store, h.store, h.notifier)
	jobHandler.RegisterRoutes(mux)

	// Recruiter 接口（招聘者账号 / 公司）
	recruiterHandler := recruiter.NewHandler(h.store, h.authCfg)
	recruiterHandler.RegisterRoutes(mux)

	// 应用访问日志和指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(h.accessLogMiddleware(mux))

	// 应用认证中间件
	authMW := auth.NewMiddleware(h.authCfg, h.store, h.store)
	authedHandler := authMW.Wrap(apiHandler)

	// 应用 CORS 中间件
	corsHandler := corsMiddleware(h.corsOrigin, authedHandler)

	// 创建顶层路由，WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题），
	// 但仍经过认证中间件，握手依赖会话 Cookie
	topMux := http.NewServeMux()
	wsMux := http.NewServeMux()
	notify.NewWSHandler(h.hub).RegisterRoutes(wsMux)
	topMux.Handle("/ws/", corsMiddleware(h.corsOrigin, authMW.Wrap(wsMux)))
	topMux.Handle("/", corsHandler)

	return topMux
}

// SetCORSOrigin 设置允许跨域的来源，空值表示允许所有来源
func (h *Handler) SetCORSOrigin(origin string) {
	h.corsOrigin = origin
}

// serveOpenAPI 返回内嵌的 OpenAPI 文档
func serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	data, err := api.OpenAPIFS.ReadFile("openapi/openapi.yaml")
	if err != nil {
		http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

// serveDocs 返回在线文档页面
func serveDocs(w http.ResponseWriter, r *http.Request) {
	data, err := api.DocsFS.ReadFile("docs/index.html")
	if err != nil {
		http.Error(w, "docs unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// accessLogMiddleware 记录每个请求的结构化访问日志
func (h *Handler) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		h.logger.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
	})
}

// clientIP 提取客户端 IP，优先取反向代理写入的 X-Forwarded-For
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// corsMiddleware 添加 CORS 头支持跨域请求
// 带 Cookie 的跨域请求需要具体来源和 Allow-Credentials
func corsMiddleware(origin string, next http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if origin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
