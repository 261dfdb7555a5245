// Package job 职位与求职申请的 HTTP 处理器
package job

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// Store 职位存储接口
type Store interface {
	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error)
	ListJobsByRecruiter(ctx context.Context, recruiterID string) ([]*model.Job, error)
	UpdateJob(ctx context.Context, j *model.Job) error
	DeleteJob(ctx context.Context, id string) error

	CreateApplication(ctx context.Context, a *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]*model.Application, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]*model.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error
}

// UserLoader 申请人简历引用所需的最小接口
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Sink 通知投递接口
type Sink interface {
	Notify(recipientID string, n model.Notification)
}

// Handler 职位 HTTP 处理器
type Handler struct {
	store  Store
	users  UserLoader
	notify Sink
}

// NewHandler 创建职位处理器
func NewHandler(store Store, users UserLoader, notify Sink) *Handler {
	return &Handler{store: store, users: users, notify: notify}
}

// RegisterRoutes 注册职位相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/jobs", h.Create)
	mux.HandleFunc("GET /api/v1/jobs", h.List)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/jobs/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", h.Delete)

	mux.HandleFunc("POST /api/v1/jobs/{id}/apply", h.Apply)
	mux.HandleFunc("GET /api/v1/jobs/{id}/applications", h.ListApplications)
	mux.HandleFunc("GET /api/v1/users/me/applications", h.ListMyApplications)
	mux.HandleFunc("PATCH /api/v1/applications/{id}", h.UpdateApplicationStatus)
}

// ============================================================================
// 请求类型
// ============================================================================

type jobRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Skills      []string `json:"skills"`
	SalaryMin   int      `json:"salary_min"`
	SalaryMax   int      `json:"salary_max"`
	Status      string   `json:"status"`
}

type applyRequest struct {
	CoverNote string `json:"cover_note"`
}

type applicationStatusRequest struct {
	Status string `json:"status"`
}

// ============================================================================
// 职位
// ============================================================================

// Create 发布职位，仅招聘者
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "title and description are required")
		return
	}

	now := time.Now()
	job := &model.Job{
		ID:          generateID("job"),
		RecruiterID: p.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Skills:      model.NormalizeStringList(req.Skills),
		SalaryMin:   req.SalaryMin,
		SalaryMax:   req.SalaryMax,
		Status:      model.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		log.Printf("[job.create] error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	log.Printf("[job] Job created: %s by %s", job.ID, p.ID)
	writeJSON(w, http.StatusCreated, job)
}

// List 开放职位列表
// 查询参数: recruiter（按发布者过滤，含已关闭职位）、limit、offset
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if recruiter := r.URL.Query().Get("recruiter"); recruiter != "" {
		jobs, err := h.store.ListJobsByRecruiter(r.Context(), recruiter)
		if err != nil {
			log.Printf("[job.list] by recruiter %s: %v", recruiter, err)
			writeError(w, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		writeJSON(w, http.StatusOK, jobs)
		return
	}

	limit, offset := pageParams(r, 20)
	jobs, err := h.store.ListJobs(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[job.list] error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get 职位详情
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	job := h.loadJob(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Update 更新职位，仅发布者
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}
	job := h.loadJob(w, r)
	if job == nil {
		return
	}
	if job.RecruiterID != p.ID {
		writeError(w, http.StatusForbidden, "only the posting recruiter can update this job")
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != "" {
		job.Title = req.Title
	}
	if req.Description != "" {
		job.Description = req.Description
	}
	if req.Location != "" {
		job.Location = req.Location
	}
	if req.Skills != nil {
		job.Skills = model.NormalizeStringList(req.Skills)
	}
	if req.SalaryMin != 0 {
		job.SalaryMin = req.SalaryMin
	}
	if req.SalaryMax != 0 {
		job.SalaryMax = req.SalaryMax
	}
	if req.Status != "" {
		status := model.JobStatus(req.Status)
		if status != model.JobStatusOpen && status != model.JobStatusClosed {
			writeError(w, http.StatusBadRequest, "status must be open or closed")
			return
		}
		job.Status = status
	}
	job.UpdatedAt = time.Now()

	if err := h.store.UpdateJob(r.Context(), job); err != nil {
		log.Printf("[job.update] %s: %v", job.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Delete 删除职位，仅发布者
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}
	job := h.loadJob(w, r)
	if job == nil {
		return
	}
	if job.RecruiterID != p.ID {
		writeError(w, http.StatusForbidden, "only the posting recruiter can delete this job")
		return
	}
	if err := h.store.DeleteJob(r.Context(), job.ID); err != nil {
		log.Printf("[job.delete] %s: %v", job.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ============================================================================
// 申请
// ============================================================================

// Apply 申请职位，仅求职者；同一职位重复申请返回 409
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil || p.Role != auth.RoleUser {
		writeError(w, http.StatusForbidden, "only job seekers can apply")
		return
	}
	job := h.loadJob(w, r)
	if job == nil {
		return
	}
	if job.Status != model.JobStatusOpen {
		writeError(w, http.StatusBadRequest, "job is closed")
		return
	}

	var req applyRequest
	if r.Body != nil {
		// 申请体可为空
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// 简历引用来自用户档案
	resumeKey := ""
	if u, err := h.users.GetUserByID(r.Context(), p.ID); err == nil && u != nil {
		resumeKey = u.ResumeKey
	}

	now := time.Now()
	app := &model.Application{
		ID:        generateID("app"),
		JobID:     job.ID,
		UserID:    p.ID,
		ResumeKey: resumeKey,
		CoverNote: req.CoverNote,
		Status:    model.ApplicationApplied,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateApplication(r.Context(), app); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "already applied to this job")
			return
		}
		log.Printf("[job.apply] %s -> %s: %v", p.ID, job.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to apply")
		return
	}

	h.notify.Notify(job.RecruiterID, model.NewNotification(
		p.ID,
		model.NotificationApplication,
		fmt.Sprintf("New application for %s", job.Title),
		"/jobs/"+job.ID+"/applications",
		map[string]string{"application_id": app.ID},
	))

	log.Printf("[job] Application created: %s (%s -> %s)", app.ID, p.ID, job.ID)
	writeJSON(w, http.StatusCreated, app)
}

// ListApplications 职位的申请列表，仅发布者
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}
	job := h.loadJob(w, r)
	if job == nil {
		return
	}
	if job.RecruiterID != p.ID {
		writeError(w, http.StatusForbidden, "only the posting recruiter can view applications")
		return
	}
	apps, err := h.store.ListApplicationsByJob(r.Context(), job.ID)
	if err != nil {
		log.Printf("[job.applications] %s: %v", job.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// ListMyApplications 自己的申请列表
func (h *Handler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil || p.Role != auth.RoleUser {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	apps, err := h.store.ListApplicationsByUser(r.Context(), p.ID)
	if err != nil {
		log.Printf("[job.applications] user %s: %v", p.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// UpdateApplicationStatus 推进申请状态，仅职位发布者；状态变更通知申请人
func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	p := requireRecruiter(w, r)
	if p == nil {
		return
	}

	var req applicationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := model.ApplicationStatus(req.Status)
	if !model.ValidApplicationStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid application status")
		return
	}

	id := r.PathValue("id")
	app, err := h.store.GetApplication(r.Context(), id)
	if err != nil {
		log.Printf("[job.application] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	job, err := h.store.GetJob(r.Context(), app.JobID)
	if err != nil || job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.RecruiterID != p.ID {
		writeError(w, http.StatusForbidden, "only the posting recruiter can update this application")
		return
	}

	if err := h.store.UpdateApplicationStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		log.Printf("[job.application] update %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update application")
		return
	}

	h.notify.Notify(app.UserID, model.NewNotification(
		p.ID,
		model.NotificationApplication,
		fmt.Sprintf("Your application for %s is now %s", job.Title, status),
		"/users/me/applications",
		map[string]string{"application_id": app.ID, "status": string(status)},
	))

	log.Printf("[job] Application %s -> %s", id, status)
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated", "status": string(status)})
}

// ============================================================================
// 工具函数
// ============================================================================

// requireRecruiter 校验招聘者身份，失败时写错误并返回 nil
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

// loadJob 按路径参数加载职位，缺失时写 404 并返回 nil
func (h *Handler) loadJob(w http.ResponseWriter, r *http.Request) *model.Job {
	id := r.PathValue("id")
	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		log.Printf("[job] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
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
