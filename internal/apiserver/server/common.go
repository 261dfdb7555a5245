// Package server 提供 HTTP API 处理器
//
// 本包实现了 CareerHub 招聘社交平台的 RESTful API 入口，包括：
//   - 用户与招聘者认证（注册 / 登录 / 验证码流程）
//   - 个人资料、关注与通知接口
//   - 动态（Post）、点赞与评论接口
//   - 职位（Job）与求职申请接口
//   - WebSocket 通知实时推送
//
// 文件组织：
//   - common.go: Handler 定义与通用工具函数
//   - handler.go: 路由配置与中间件链
//   - metrics.go: Prometheus 指标
//
// 各领域接口实现在 internal/apiserver 下的独立包中，
// 本包负责构造它们并挂载路由。
package server

import (
	"encoding/json"
	"net/http"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/apiserver/notify"
	"careerhub/internal/config"
	"careerhub/internal/mailer"
	"careerhub/internal/shared/objstore"
	"careerhub/internal/shared/storage"
	"careerhub/pkg/logging"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 构造各领域子处理器并挂载路由
//   - 管理存储层连接
//   - 协调通知扇出器和 WebSocket Hub
//
// 依赖说明：
//   - email / sms: 验证码与找回密码投递通道，未配置时使用 NoOpSender
//   - objects: 对象存储（头像 / 简历），可选，未配置时相关接口返回 503
type Handler struct {
	store   storage.PersistentStore // MongoDB 存储层（持久化业务数据）
	authCfg auth.Config             // JWT 与 Cookie 配置

	// 投递通道
	email mailer.EmailSender
	sms   mailer.SMSSender

	// 对象存储（可选）
	objects *objstore.Client

	// 允许跨域的来源，空值等同于 "*"
	corsOrigin string

	// 内部组件
	hub      *notify.Hub      // WebSocket 连接注册表
	notifier *notify.Notifier // 通知扇出器
	metrics  *Metrics         // Prometheus 指标
	logger   *logging.Logger  // 结构化访问日志
}

// NewHandler 创建 Handler 实例
//
// 参数：
//   - store: MongoDB 存储层实例
//   - authCfg: 认证配置（JWT 密钥与令牌有效期）
//
// 邮件、短信与对象存储通过 Set* 方法按需注入，
// 未注入时邮件和短信走 NoOpSender（只打日志）。
func NewHandler(store storage.PersistentStore, authCfg auth.Config) *Handler {
	h := &Handler{
		store:   store,
		authCfg: authCfg,
		email:   mailer.NoOpSender{},
		sms:     mailer.NoOpSender{},
	}

	h.metrics = NewMetrics("careerhub")
	h.logger = logging.Default("api-server")
	h.hub = notify.NewHub(h.metrics.WSConnectionsActive)
	h.notifier = notify.NewNotifier(store, h.hub, h.metrics.DeliveriesTotal)
	return h
}

// AuthConfigFrom 把应用配置段转换为认证配置，零值回落到默认值
func AuthConfigFrom(cfg config.AuthConfig) auth.Config {
	c := auth.DefaultConfig()
	c.JWTSecret = cfg.JWTSecret
	if cfg.UserTokenTTL > 0 {
		c.UserTokenTTL = cfg.UserTokenTTL
	}
	if cfg.RecruiterTokenTTL > 0 {
		c.RecruiterTokenTTL = cfg.RecruiterTokenTTL
	}
	c.CookieSecure = cfg.CookieSecure
	return c
}

// SetEmailSender 设置邮件投递通道
func (h *Handler) SetEmailSender(sender mailer.EmailSender) {
	if sender != nil {
		h.email = sender
	}
}

// SetSMSSender 设置短信投递通道
func (h *Handler) SetSMSSender(sender mailer.SMSSender) {
	if sender != nil {
		h.sms = sender
	}
}

// SetObjectStore 设置对象存储客户端
func (h *Handler) SetObjectStore(client *objstore.Client) {
	h.objects = client
}

// Notifier 返回通知扇出器，main 负责 Start/Stop
func (h *Handler) Notifier() *notify.Notifier {
	return h.notifier
}

// Hub 返回 WebSocket 连接注册表
func (h *Handler) Hub() *notify.Hub {
	return h.hub
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /healthz
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
