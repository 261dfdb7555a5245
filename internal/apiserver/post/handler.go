// Package post 动态、点赞与评论的 HTTP 处理器
package post

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

// Store 动态存储接口
type Store interface {
	CreatePost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)
	DeletePost(ctx context.Context, id string) error

	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error

	AddComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// UserLoader 展示名所需的最小接口
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Sink 通知投递接口
type Sink interface {
	Notify(recipientID string, n model.Notification)
}

// Handler 动态 HTTP 处理器
type Handler struct {
	store  Store
	users  UserLoader
	notify Sink
}

// NewHandler 创建动态处理器
func NewHandler(store Store, users UserLoader, notify Sink) *Handler {
	return &Handler{store: store, users: users, notify: notify}
}

// RegisterRoutes 注册动态相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/posts", h.Create)
	mux.HandleFunc("GET /api/v1/posts", h.List)
	mux.HandleFunc("GET /api/v1/posts/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/posts/{id}", h.Delete)
	mux.HandleFunc("POST /api/v1/posts/{id}/like", h.ToggleLike)
	mux.HandleFunc("POST /api/v1/posts/{id}/comments", h.AddComment)
	mux.HandleFunc("GET /api/v1/posts/{id}/comments", h.ListComments)
	mux.HandleFunc("DELETE /api/v1/comments/{id}", h.DeleteComment)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type createPostRequest struct {
	Content  string `json:"content"`
	MediaKey string `json:"media_key"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type likeResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// ============================================================================
// 动态
// ============================================================================

// Create 发布动态
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	now := time.Now()
	post := &model.Post{
		ID:        generateID("post"),
		AuthorID:  p.ID,
		Content:   req.Content,
		MediaKey:  req.MediaKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreatePost(r.Context(), post); err != nil {
		log.Printf("[post.create] error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// List 动态流，按创建时间倒序
// 查询参数: author（按作者过滤）、limit、offset
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if author := r.URL.Query().Get("author"); author != "" {
		posts, err := h.store.ListPostsByAuthor(r.Context(), author)
		if err != nil {
			log.Printf("[post.list] by author %s: %v", author, err)
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		writeJSON(w, http.StatusOK, posts)
		return
	}

	limit, offset := pageParams(r, 20)
	posts, err := h.store.ListPosts(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[post.list] error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Get 获取单条动态
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post := h.loadPost(w, r)
	if post == nil {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Delete 删除动态，仅作者可删，连带删除其评论
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	post := h.loadPost(w, r)
	if post == nil {
		return
	}
	if post.AuthorID != p.ID {
		writeError(w, http.StatusForbidden, "only the author can delete this post")
		return
	}
	if err := h.store.DeletePost(r.Context(), post.ID); err != nil {
		log.Printf("[post.delete] %s: %v", post.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ============================================================================
// 点赞
// ============================================================================

// ToggleLike 点赞/取消点赞切换
// 点赞他人动态时向作者投递通知，给自己点赞不通知
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	post := h.loadPost(w, r)
	if post == nil {
		return
	}

	if post.LikedBy(p.ID) {
		if err := h.store.RemoveLike(r.Context(), post.ID, p.ID); err != nil {
			log.Printf("[post.like] remove %s on %s: %v", p.ID, post.ID, err)
			writeError(w, http.StatusInternalServerError, "failed to unlike")
			return
		}
		writeJSON(w, http.StatusOK, likeResponse{Liked: false, Likes: len(post.Likes) - 1})
		return
	}

	if err := h.store.AddLike(r.Context(), post.ID, p.ID); err != nil {
		log.Printf("[post.like] add %s on %s: %v", p.ID, post.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to like")
		return
	}

	if post.AuthorID != p.ID {
		h.notify.Notify(post.AuthorID, model.NewNotification(
			p.ID,
			model.NotificationLike,
			fmt.Sprintf("%s liked your post", h.displayName(r.Context(), p.ID)),
			"/posts/"+post.ID,
			nil,
		))
	}
	writeJSON(w, http.StatusOK, likeResponse{Liked: true, Likes: len(post.Likes) + 1})
}

// ============================================================================
// 评论
// ============================================================================

// AddComment 发表评论，向动态作者投递通知（自评不通知）
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	post := h.loadPost(w, r)
	if post == nil {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	comment := &model.Comment{
		ID:        generateID("cmt"),
		PostID:    post.ID,
		AuthorID:  p.ID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := h.store.AddComment(r.Context(), comment); err != nil {
		log.Printf("[post.comment] add to %s: %v", post.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	if post.AuthorID != p.ID {
		h.notify.Notify(post.AuthorID, model.NewNotification(
			p.ID,
			model.NotificationComment,
			fmt.Sprintf("%s commented on your post", h.displayName(r.Context(), p.ID)),
			"/posts/"+post.ID,
			map[string]string{"comment_id": comment.ID},
		))
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ListComments 动态的评论列表
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	post := h.loadPost(w, r)
	if post == nil {
		return
	}
	comments, err := h.store.ListComments(r.Context(), post.ID)
	if err != nil {
		log.Printf("[post.comment] list %s: %v", post.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// DeleteComment 删除评论，仅评论作者可删
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := r.PathValue("id")
	comment, err := h.store.GetComment(r.Context(), id)
	if err != nil {
		log.Printf("[post.comment] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if comment.AuthorID != p.ID {
		writeError(w, http.StatusForbidden, "only the author can delete this comment")
		return
	}

	if err := h.store.DeleteComment(r.Context(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[post.comment] delete %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ============================================================================
// 工具函数
// ============================================================================

// loadPost 按路径参数加载动态，缺失时写 404 并返回 nil
func (h *Handler) loadPost(w http.ResponseWriter, r *http.Request) *model.Post {
	id := r.PathValue("id")
	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		log.Printf("[post] load %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return nil
	}
	return post
}

// displayName 加载失败退回主体 ID
func (h *Handler) displayName(ctx context.Context, userID string) string {
	u, err := h.users.GetUserByID(ctx, userID)
	if err != nil || u == nil {
		return userID
	}
	return u.DisplayName()
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
