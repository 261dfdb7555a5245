// Package user 用户档案、关注关系与通知邮箱的 HTTP 处理器
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/objstore"
	"careerhub/internal/shared/storage"
)

// Store 用户存储接口
type Store interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	UpdateUserProfile(ctx context.Context, id string, profile model.Profile) error
	SetUserAvatar(ctx context.Context, id, key string) error
	SetUserResume(ctx context.Context, id, key string) error

	AddFollowEdge(ctx context.Context, followerID, targetID string) error
	RemoveFollowEdge(ctx context.Context, followerID, targetID string) error

	MarkAllNotificationsRead(ctx context.Context, userID string) error
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// Sink 通知投递接口（异步、尽力而为）
type Sink interface {
	Notify(recipientID string, n model.Notification)
}

// ObjectStore 头像/简历对象存储接口
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Handler 用户 HTTP 处理器
type Handler struct {
	store   Store
	notify  Sink
	objects ObjectStore // 可为 nil（未配置对象存储）
}

// NewHandler 创建用户处理器
func NewHandler(store Store, notify Sink, objects ObjectStore) *Handler {
	return &Handler{store: store, notify: notify, objects: objects}
}

// RegisterRoutes 注册用户相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/users/{id}", h.GetProfile)
	mux.HandleFunc("PUT /api/v1/users/me/profile", h.UpdateProfile)
	mux.HandleFunc("POST /api/v1/users/{id}/follow", h.ToggleFollow)
	mux.HandleFunc("GET /api/v1/users/{id}/followers", h.ListFollowers)
	mux.HandleFunc("GET /api/v1/users/{id}/following", h.ListFollowing)

	mux.HandleFunc("GET /api/v1/users/me/notifications", h.ListNotifications)
	mux.HandleFunc("POST /api/v1/users/me/notifications/read", h.MarkAllRead)
	mux.HandleFunc("POST /api/v1/users/me/notifications/{nid}/read", h.MarkOneRead)

	mux.HandleFunc("POST /api/v1/users/me/avatar", h.UploadAvatar)
	mux.HandleFunc("GET /api/v1/users/{id}/avatar", h.DownloadAvatar)
	mux.HandleFunc("POST /api/v1/users/me/resume", h.UploadResume)
	mux.HandleFunc("GET /api/v1/users/{id}/resume", h.DownloadResume)
}

// ============================================================================
// 档案
// ============================================================================

type updateProfileRequest struct {
	Name       string             `json:"name"`
	Headline   string             `json:"headline"`
	Bio        string             `json:"bio"`
	Location   string             `json:"location"`
	Skills     json.RawMessage    `json:"skills"` // 数组或逗号分隔字符串
	Experience []model.Experience `json:"experience"`
	Education  []model.Education  `json:"education"`
}

// GetProfile 获取用户公开档案
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.loadUser(w, r, id)
	if user == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UpdateProfile 更新自己的档案
// skills 字段接受数组或逗号分隔字符串两种形态，入库前统一规范化
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	skills, err := decodeStringList(req.Skills)
	if err != nil {
		writeError(w, http.StatusBadRequest, "skills must be an array or a comma-separated string")
		return
	}

	profile := model.Profile{
		Name:       req.Name,
		Headline:   req.Headline,
		Bio:        req.Bio,
		Location:   req.Location,
		Skills:     model.NormalizeStringList(skills),
		Experience: req.Experience,
		Education:  req.Education,
	}
	if err := h.store.UpdateUserProfile(r.Context(), p.ID, profile); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("[user.profile] update error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// decodeStringList 接受 JSON 数组或单个字符串
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}
	return nil, fmt.Errorf("not a string or string array")
}

// ============================================================================
// 关注关系
// ============================================================================

type followResponse struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

// ToggleFollow 关注/取关切换
// 已关注则取关，未关注则关注；关注成功时向对方投递通知
func (h *Handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	targetID := r.PathValue("id")
	if targetID == p.ID {
		writeError(w, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	target, err := h.loadUser(w, r, targetID)
	if target == nil || err != nil {
		return
	}
	me, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || me == nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	if me.IsFollowing(targetID) {
		if err := h.store.RemoveFollowEdge(r.Context(), p.ID, targetID); err != nil {
			log.Printf("[user.follow] remove edge %s -> %s: %v", p.ID, targetID, err)
			writeError(w, http.StatusInternalServerError, "failed to unfollow")
			return
		}
		writeJSON(w, http.StatusOK, followResponse{Following: false, Followers: len(target.Followers) - 1})
		return
	}

	if err := h.store.AddFollowEdge(r.Context(), p.ID, targetID); err != nil {
		log.Printf("[user.follow] add edge %s -> %s: %v", p.ID, targetID, err)
		writeError(w, http.StatusInternalServerError, "failed to follow")
		return
	}

	h.notify.Notify(targetID, model.NewNotification(
		p.ID,
		model.NotificationFollow,
		fmt.Sprintf("%s started following you", me.DisplayName()),
		"/users/"+p.ID,
		nil,
	))

	writeJSON(w, http.StatusOK, followResponse{Following: true, Followers: len(target.Followers) + 1})
}

// ListFollowers 关注者列表
func (h *Handler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	h.listEdge(w, r, func(u *model.User) []string { return u.Followers })
}

// ListFollowing 关注中列表
func (h *Handler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	h.listEdge(w, r, func(u *model.User) []string { return u.Following })
}

func (h *Handler) listEdge(w http.ResponseWriter, r *http.Request, edge func(*model.User) []string) {
	user, err := h.loadUser(w, r, r.PathValue("id"))
	if user == nil || err != nil {
		return
	}
	others, err := h.store.GetUsersByIDs(r.Context(), edge(user))
	if err != nil {
		log.Printf("[user.follow] batch load error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	out := make([]model.PublicUser, 0, len(others))
	for _, u := range others {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

// ============================================================================
// 通知邮箱
// ============================================================================

// ListNotifications 获取自己的通知，新的在前，附带发送者快照
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	me, err := h.store.GetUserByID(r.Context(), p.ID)
	if err != nil || me == nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	// 发送者快照一次批量查出
	senderIDs := make([]string, 0, len(me.Notifications))
	seen := map[string]bool{}
	for _, n := range me.Notifications {
		if n.From != "" && !seen[n.From] {
			seen[n.From] = true
			senderIDs = append(senderIDs, n.From)
		}
	}
	senders := map[string]*model.NotificationSender{}
	if len(senderIDs) > 0 {
		users, err := h.store.GetUsersByIDs(r.Context(), senderIDs)
		if err != nil {
			log.Printf("[user.notifications] batch load senders: %v", err)
		} else {
			for _, u := range users {
				senders[u.ID] = &model.NotificationSender{ID: u.ID, Name: u.DisplayName(), AvatarKey: u.AvatarKey}
			}
		}
	}

	// 存储侧按追加序保存，展示时反转为时间倒序
	out := make([]model.NotificationView, 0, len(me.Notifications))
	for i := len(me.Notifications) - 1; i >= 0; i-- {
		n := me.Notifications[i]
		out = append(out, model.NotificationView{Notification: n, Sender: senders[n.From]})
	}
	writeJSON(w, http.StatusOK, out)
}

// MarkAllRead 全部标记已读
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.store.MarkAllNotificationsRead(r.Context(), p.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[user.notifications] mark all read: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "all read"})
}

// MarkOneRead 单条标记已读，幂等
func (h *Handler) MarkOneRead(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.store.MarkNotificationRead(r.Context(), p.ID, r.PathValue("nid")); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[user.notifications] mark read: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "read"})
}

// ============================================================================
// 头像 / 简历
// ============================================================================

const maxUploadSize = 10 << 20 // 10 MiB

// UploadAvatar 上传头像（multipart 字段名 file）
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "avatar", objstore.AvatarKey, h.store.SetUserAvatar)
}

// UploadResume 上传简历
func (h *Handler) UploadResume(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "resume", objstore.ResumeKey, h.store.SetUserResume)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, kind string, keyFn func(string) string, setKey func(context.Context, string, string) error) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if h.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := keyFn(p.ID)
	if err := h.objects.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		log.Printf("[user.%s] upload error: %v", kind, err)
		writeError(w, http.StatusBadGateway, "failed to store file")
		return
	}
	if err := setKey(r.Context(), p.ID, key); err != nil {
		log.Printf("[user.%s] set key error: %v", kind, err)
		writeError(w, http.StatusInternalServerError, "failed to save file reference")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

// DownloadAvatar 下载用户头像
func (h *Handler) DownloadAvatar(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, func(u *model.User) string { return u.AvatarKey })
}

// DownloadResume 下载用户简历
func (h *Handler) DownloadResume(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, func(u *model.User) string { return u.ResumeKey })
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, keyOf func(*model.User) string) {
	if h.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	user, err := h.loadUser(w, r, r.PathValue("id"))
	if user == nil || err != nil {
		return
	}
	key := keyOf(user)
	if key == "" {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	body, contentType, err := h.objects.Download(r.Context(), key)
	if err != nil {
		log.Printf("[user.download] %s: %v", key, err)
		writeError(w, http.StatusBadGateway, "failed to fetch file")
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[user.download] stream %s: %v", key, err)
	}
}

// ============================================================================
// 工具函数
// ============================================================================

// loadUser 按 ID 加载用户，缺失时写 404 并返回 nil
func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request, id string) (*model.User, error) {
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		log.Printf("[user] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, err
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, nil
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
