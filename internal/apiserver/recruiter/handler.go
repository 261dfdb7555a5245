// Package recruiter 招聘者账号与公司管理的 HTTP 处理器
package recruiter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// Store 招聘者存储接口
type Store interface {
	CreateRecruiter(ctx context.Context, rec *model.Recruiter) error
	GetRecruiterByID(ctx context.Context, id string) (*model.Recruiter, error)
	GetRecruiterByEmail(ctx context.Context, email string) (*model.Recruiter, error)
	GetRecruiterByUsername(ctx context.Context, username string) (*model.Recruiter, error)
	UpdateRecruiterPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetRecruiterCompany(ctx context.Context, id, companyID string) error

	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, limit, offset int) ([]*model.Company, error)
	UpdateCompany(ctx context.Context, c *model.Company) error
}

// Handler 招聘者 HTTP 处理器
type Handler struct {
	store Store
	cfg   auth.Config
}

// NewHandler 创建招聘者处理器
func NewHandler(store Store, cfg auth.Config) *Handler {
	return &Handler{store: store, cfg: cfg}
}

// RegisterRoutes 注册招聘者相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/recruiters/register", h.Register)
	mux.HandleFunc("POST /api/v1/recruiters/login", h.Login)
	mux.HandleFunc("GET /api/v1/recruiters/me", h.Me)
	mux.HandleFunc("PUT /api/v1/recruiters/password", h.ChangePassword)

	mux.HandleFunc("POST /api/v1/companies", h.CreateCompany)
	mux.HandleFunc("GET /api/v1/companies", h.ListCompanies)
	mux.HandleFunc("GET /api/v1/companies/{id}", h.GetCompany)
	mux.HandleFunc("PUT /api/v1/companies/{id}", h.UpdateCompany)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Title    string `json:"title"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type companyRequest struct {
	Name     string `json:"name"`
	Website  string `json:"website"`
	About    string `json:"about"`
	Location string `json:"location"`
}

type authResponse struct {
	Recruiter *model.Recruiter `json:"recruiter"`
	Token     string           `json:"token"`
}

// ============================================================================
// 账号
// ============================================================================

// Register 招聘者注册，令牌有效期 30 天
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
	if !auth.IsEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("[recruiter.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	rec := &model.Recruiter{
		ID:           generateID("rec"),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Title:        req.Title,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateRecruiter(r.Context(), rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email or username already registered")
			return
		}
		log.Printf("[recruiter.register] CreateRecruiter error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create recruiter")
		return
	}

	token, err := auth.GenerateToken(h.cfg, rec.ID, auth.RoleRecruiter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	auth.SetTokenCookie(w, h.cfg, token, auth.RoleRecruiter)

	log.Printf("[recruiter] Recruiter registered: %s (%s)", rec.Email, rec.ID)
	writeJSON(w, http.StatusCreated, authResponse{Recruiter: rec, Token: token})
}

// Login 招聘者登录
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

	var rec *model.Recruiter
	var err error
	if auth.IsEmail(req.Identifier) {
		rec, err = h.store.GetRecruiterByEmail(r.Context(), req.Identifier)
	} else {
		rec, err = h.store.GetRecruiterByUsername(r.Context(), req.Identifier)
	}
	if err != nil {
		log.Printf("[recruiter.login] lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil || !auth.CheckPassword(req.Password, rec.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.cfg, rec.ID, auth.RoleRecruiter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	auth.SetTokenCookie(w, h.cfg, token, auth.RoleRecruiter)

	log.Printf("[recruiter] Recruiter logged in: %s", rec.Email)
	writeJSON(w, http.StatusOK, authResponse{Recruiter: rec, Token: token})
}

// Me 当前招聘者信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}
	rec, err := h.store.GetRecruiterByID(r.Context(), p.ID)
	if err != nil || rec == nil {
		writeError(w, http.StatusNotFound, "recruiter not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ChangePassword 修改密码，改密后此前签发的令牌失效
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
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

	rec, err := h.store.GetRecruiterByID(r.Context(), p.ID)
	if err != nil || rec == nil {
		writeError(w, http.StatusNotFound, "recruiter not found")
		return
	}
	if !auth.CheckPassword(req.OldPassword, rec.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "incorrect old password")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	changedAt := time.Now().Truncate(time.Second)
	if err := h.store.UpdateRecruiterPassword(r.Context(), rec.ID, hash, changedAt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	token, err := auth.GenerateToken(h.cfg, rec.ID, auth.RoleRecruiter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	auth.SetTokenCookie(w, h.cfg, token, auth.RoleRecruiter)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated", "token": token})
}

// ============================================================================
// 公司
// ============================================================================

// CreateCompany 创建公司并绑定到当前招聘者
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now()
	company := &model.Company{
		ID:        generateID("co"),
		OwnerID:   p.ID,
		Name:      req.Name,
		Website:   req.Website,
		About:     req.About,
		Location:  req.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateCompany(r.Context(), company); err != nil {
		log.Printf("[recruiter.company] create error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create company")
		return
	}
	if err := h.store.SetRecruiterCompany(r.Context(), p.ID, company.ID); err != nil {
		log.Printf("[recruiter.company] bind %s to %s: %v", company.ID, p.ID, err)
	}

	writeJSON(w, http.StatusCreated, company)
}

// ListCompanies 公司列表
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context(), 50, 0)
	if err != nil {
		log.Printf("[recruiter.company] list error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// GetCompany 公司详情
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	company, err := h.store.GetCompany(r.Context(), id)
	if err != nil {
		log.Printf("[recruiter.company] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// UpdateCompany 更新公司资料，仅创建者
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}
	id := r.PathValue("id")
	company, err := h.store.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	if company.OwnerID != p.ID {
		writeError(w, http.StatusForbidden, "only the owner can update this company")
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		company.Name = req.Name
	}
	if req.Website != "" {
		company.Website = req.Website
	}
	if req.About != "" {
		company.About = req.About
	}
	if req.Location != "" {
		company.Location = req.Location
	}
	company.UpdatedAt = time.Now()

	if err := h.store.UpdateCompany(r.Context(), company); err != nil {
		log.Printf("[recruiter.company] update %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update company")
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// ============================================================================
// 工具函数
// ============================================================================

func requireRecruiter(w http.ResponseWriter, r *http.Request) *auth.Principal {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil
	}
	if p.Role != auth.RoleRecruiter {
		writeError(w, http.StatusForbidden, "recruiter account required")
		return nil
	}
	return p
}

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
