package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store    UserStore
	verifier *Verifier
	cfg      Config
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, verifier *Verifier, cfg Config) *Handler {
	return &Handler{store: store, verifier: verifier, cfg: cfg}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/auth/me", h.Me)
	mux.HandleFunc("PUT /api/v1/auth/password", h.ChangePassword)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/send-otp", h.SendOTP)
	mux.HandleFunc("POST /api/v1/auth/verify-otp", h.VerifyOTP)
	mux.HandleFunc("POST /api/v1/auth/reset-password", h.ResetPassword)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
	Via   string `json:"via"` // "link"（默认）或 "otp"
}

type sendOTPRequest struct {
	Purpose string `json:"purpose"`
	Phone   string `json:"phone"`
}

type verifyOTPRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
	NewPassword string `json:"new_password"`
	Phone       string `json:"phone"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type authResponse struct {
	User  *model.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username, password are required")
		return
	}
	if !IsEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Provider:     model.AuthProviderLocal,
		Profile:      model.Profile{Name: req.Name},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email or username already registered")
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID, RoleUser)
	if err != nil {
		log.Printf("[auth.register] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	SetTokenCookie(w, h.cfg, token, RoleUser)

	// 注册附带发送邮箱验证码，异步投递，失败只记日志不影响注册。
	// 请求上下文在响应后取消，投递用独立上下文
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.verifier.IssueOTP(ctx, user, model.OTPPurposeVerifyEmail, ""); err != nil {
			log.Printf("[auth.register] send verification otp to %s: %v", user.Email, err)
		}
	}()

	pub := user.Public()
	log.Printf("[auth] User registered: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{User: &pub, Token: token})
}

// Login 用户登录，标识符为邮箱或用户名
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	var user *model.User
	var err error
	if IsEmail(req.Identifier) {
		user, err = h.store.GetUserByEmail(r.Context(), req.Identifier)
	} else {
		user, err = h.store.GetUserByUsername(r.Context(), req.Identifier)
	}
	if err != nil {
		log.Printf("[auth.login] lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID, RoleUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	SetTokenCookie(w, h.cfg, token, RoleUser)

	pub := user.Public()
	log.Printf("[auth] User logged in: %s", user.Email)
	writeJSON(w, http.StatusOK, authResponse{User: &pub, Token: token})
}

// Logout 清除会话 Cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearTokenCookie(w, h.cfg)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me 获取当前用户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil || p.Role != RoleUser {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword 修改密码
// 改密后此前签发的所有令牌失效，响应里附带新令牌
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil || p.Role != RoleUser {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "incorrect old password")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// JWT iat 精度为秒，变更时间对齐到秒边界，
	// 保证紧随其后签发的新令牌不会被自己的改密判定为失效
	changedAt := time.Now().Truncate(time.Second)
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash, changedAt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID, RoleUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	SetTokenCookie(w, h.cfg, token, RoleUser)

	log.Printf("[auth] Password changed: %s", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated", "token": token})
}

// ForgotPassword 发起找回密码
// via=link 发送重置令牌邮件（默认），via=otp 发送 6 位验证码
// 邮箱不存在时返回与成功相同的响应，避免账号枚举
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || !IsEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.forgot] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, an email has been sent"})
		return
	}

	if req.Via == "otp" {
		err = h.verifier.IssueOTP(r.Context(), user, model.OTPPurposeResetPassword, "")
	} else {
		err = h.verifier.IssueResetToken(r.Context(), user, "")
	}
	if err != nil {
		if errors.Is(err, ErrDelivery) {
			log.Printf("[auth.forgot] delivery to %s failed: %v", user.Email, err)
			writeError(w, http.StatusBadGateway, "failed to send email")
			return
		}
		log.Printf("[auth.forgot] issue error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, an email has been sent"})
}

// SendOTP 已登录用户请求验证码（邮箱验证 / 换绑手机）
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil || p.Role != RoleUser {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	purpose := model.OTPPurpose(req.Purpose)
	switch purpose {
	case model.OTPPurposeVerifyEmail:
	case model.OTPPurposeChangePhone:
		if req.Phone == "" {
			writeError(w, http.StatusBadRequest, "phone is required")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported purpose")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.verifier.IssueOTP(r.Context(), user, purpose, req.Phone); err != nil {
		if errors.Is(err, ErrDelivery) {
			writeError(w, http.StatusBadGateway, "failed to deliver code")
			return
		}
		log.Printf("[auth.send-otp] issue error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "code sent"})
}

// VerifyOTP 消费验证码，按用途执行邮箱验证/换绑手机/重置密码
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" || req.Code == "" || req.Purpose == "" {
		writeError(w, http.StatusBadRequest, "identifier, code, purpose are required")
		return
	}
	purpose := model.OTPPurpose(req.Purpose)
	if purpose == model.OTPPurposeResetPassword && len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := lookupByIdentifier(r.Context(), h.verifier.store, req.Identifier)
	if err != nil {
		log.Printf("[auth.verify-otp] lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		// 与码错同样的响应，不泄露账号是否存在
		writeError(w, http.StatusBadRequest, ErrInvalidOTP.Error())
		return
	}

	args := ConsumeOTPArgs{NewPassword: req.NewPassword, Phone: req.Phone}
	if err := h.verifier.ConsumeOTP(r.Context(), user, req.Code, purpose, args); err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[auth.verify-otp] consume error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] OTP consumed: user=%s purpose=%s", user.ID, purpose)
	writeJSON(w, http.StatusOK, map[string]string{"message": "verified"})
}

// ResetPassword 用重置令牌设置新密码
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.verifier.ConsumeResetToken(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[auth.reset] consume error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[auth] Password reset: %s", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
