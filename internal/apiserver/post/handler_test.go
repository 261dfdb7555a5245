package post

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// fakeStore 内存动态存储
type fakeStore struct {
	mu       sync.Mutex
	posts    map[string]*model.Post
	comments map[string]*model.Comment
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: map[string]*model.Post{}, comments: map[string]*model.Comment{}}
}

func (f *fakeStore) CreatePost(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetPost(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListPosts(_ context.Context, limit, offset int) ([]*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Post
	for _, p := range f.posts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListPostsByAuthor(_ context.Context, authorID string) ([]*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Post
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.posts, id)
	for cid, c := range f.comments {
		if c.PostID == id {
			delete(f.comments, cid)
		}
	}
	return nil
}

func (f *fakeStore) AddLike(_ context.Context, postID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	for _, id := range p.Likes {
		if id == userID {
			return nil
		}
	}
	p.Likes = append(p.Likes, userID)
	return nil
}

func (f *fakeStore) RemoveLike(_ context.Context, postID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	out := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			out = append(out, id)
		}
	}
	p.Likes = out
	return nil
}

func (f *fakeStore) AddComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[c.PostID]
	if !ok {
		return storage.ErrNotFound
	}
	cp := *c
	f.comments[c.ID] = &cp
	p.CommentIDs = append(p.CommentIDs, c.ID)
	return nil
}

func (f *fakeStore) GetComment(_ context.Context, id string) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListComments(_ context.Context, postID string) ([]*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteComment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return storage.ErrNotFound
	}
	if p, ok := f.posts[c.PostID]; ok {
		out := p.CommentIDs[:0]
		for _, cid := range p.CommentIDs {
			if cid != id {
				out = append(out, cid)
			}
		}
		p.CommentIDs = out
	}
	delete(f.comments, id)
	return nil
}

// fakeUsers 展示名查询桩
type fakeUsers struct {
	names map[string]string
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if name, ok := f.names[id]; ok {
		return &model.User{ID: id, Username: name}, nil
	}
	return nil, nil
}

// recordingSink 记录投递的通知
type recordingSink struct {
	mu   sync.Mutex
	sent []model.Notification
	to   []string
}

func (s *recordingSink) Notify(recipientID string, n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	s.to = append(s.to, recipientID)
}

func newTestHandler() (*Handler, *fakeStore, *recordingSink) {
	store := newFakeStore()
	sink := &recordingSink{}
	users := &fakeUsers{names: map[string]string{"usr-1": "alice", "usr-2": "bob"}}
	return NewHandler(store, users, sink), store, sink
}

func asPrincipal(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{ID: id, Role: auth.RoleUser}))
}

func createPost(t *testing.T, h *Handler, authorID, content string) model.Post {
	t.Helper()
	body, _ := json.Marshal(createPostRequest{Content: content})
	r := httptest.NewRequest("POST", "/api/v1/posts", bytes.NewReader(body))
	r = asPrincipal(r, authorID)
	w := httptest.NewRecorder()
	h.Create(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var p model.Post
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func toggleLike(t *testing.T, h *Handler, userID, postID string) likeResponse {
	t.Helper()
	r := httptest.NewRequest("POST", "/api/v1/posts/"+postID+"/like", nil)
	r.SetPathValue("id", postID)
	r = asPrincipal(r, userID)
	w := httptest.NewRecorder()
	h.ToggleLike(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("like status = %d, body %s", w.Code, w.Body.String())
	}
	var resp likeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

// ============================================================================
// 动态
// ============================================================================

func TestCreateAndGetPost(t *testing.T) {
	h, _, _ := newTestHandler()
	p := createPost(t, h, "usr-1", "hello careerhub")

	r := httptest.NewRequest("GET", "/api/v1/posts/"+p.ID, nil)
	r.SetPathValue("id", p.ID)
	w := httptest.NewRecorder()
	h.Get(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got model.Post
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Content != "hello careerhub" || got.AuthorID != "usr-1" {
		t.Errorf("post = %+v", got)
	}
}

func TestCreatePostRequiresContent(t *testing.T) {
	h, _, _ := newTestHandler()
	r := httptest.NewRequest("POST", "/api/v1/posts", bytes.NewReader([]byte(`{"content":""}`)))
	r = asPrincipal(r, "usr-1")
	w := httptest.NewRecorder()
	h.Create(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeletePostAuthorOnly(t *testing.T) {
	h, store, _ := newTestHandler()
	p := createPost(t, h, "usr-1", "mine")

	// 非作者删除被拒
	r := httptest.NewRequest("DELETE", "/api/v1/posts/"+p.ID, nil)
	r.SetPathValue("id", p.ID)
	r = asPrincipal(r, "usr-2")
	w := httptest.NewRecorder()
	h.Delete(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	// 作者删除成功
	r = httptest.NewRequest("DELETE", "/api/v1/posts/"+p.ID, nil)
	r.SetPathValue("id", p.ID)
	r = asPrincipal(r, "usr-1")
	w = httptest.NewRecorder()
	h.Delete(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got, _ := store.GetPost(context.Background(), p.ID); got != nil {
		t.Error("动态应已删除")
	}
}

// ============================================================================
// 点赞
// ============================================================================

func TestToggleLikeIdempotentPairs(t *testing.T) {
	h, store, sink := newTestHandler()
	p := createPost(t, h, "usr-1", "like me")

	resp := toggleLike(t, h, "usr-2", p.ID)
	if !resp.Liked || resp.Likes != 1 {
		t.Errorf("第一次切换: %+v", resp)
	}
	resp = toggleLike(t, h, "usr-2", p.ID)
	if resp.Liked || resp.Likes != 0 {
		t.Errorf("第二次切换: %+v", resp)
	}
	got, _ := store.GetPost(context.Background(), p.ID)
	if len(got.Likes) != 0 {
		t.Errorf("likes = %v, want empty", got.Likes)
	}

	// 点赞通知只在点赞时发出，取消不发
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.sent) != 1 {
		t.Fatalf("通知数 = %d, want 1", len(sink.sent))
	}
	if sink.to[0] != "usr-1" || sink.sent[0].Type != model.NotificationLike {
		t.Errorf("通知 = to %s type %s", sink.to[0], sink.sent[0].Type)
	}
}

func TestSelfLikeDoesNotNotify(t *testing.T) {
	h, _, sink := newTestHandler()
	p := createPost(t, h, "usr-1", "self like")
	toggleLike(t, h, "usr-1", p.ID)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.sent) != 0 {
		t.Errorf("自赞不应通知, got %d", len(sink.sent))
	}
}

func TestLikeUnknownPost(t *testing.T) {
	h, _, _ := newTestHandler()
	r := httptest.NewRequest("POST", "/api/v1/posts/post-ghost/like", nil)
	r.SetPathValue("id", "post-ghost")
	r = asPrincipal(r, "usr-1")
	w := httptest.NewRecorder()
	h.ToggleLike(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ============================================================================
// 评论
// ============================================================================

func addComment(t *testing.T, h *Handler, userID, postID, content string) (*httptest.ResponseRecorder, model.Comment) {
	t.Helper()
	body, _ := json.Marshal(commentRequest{Content: content})
	r := httptest.NewRequest("POST", "/api/v1/posts/"+postID+"/comments", bytes.NewReader(body))
	r.SetPathValue("id", postID)
	r = asPrincipal(r, userID)
	w := httptest.NewRecorder()
	h.AddComment(w, r)
	var c model.Comment
	json.Unmarshal(w.Body.Bytes(), &c)
	return w, c
}

func TestAddCommentNotifiesAuthor(t *testing.T) {
	h, store, sink := newTestHandler()
	p := createPost(t, h, "usr-1", "discuss")

	w, c := addComment(t, h, "usr-2", p.ID, "nice post")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got, _ := store.GetPost(context.Background(), p.ID)
	if !got.HasComment(c.ID) {
		t.Error("动态上应挂有评论引用")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.sent) != 1 || sink.sent[0].Type != model.NotificationComment {
		t.Fatalf("应产生评论通知, got %+v", sink.sent)
	}
	if sink.sent[0].Metadata["comment_id"] != c.ID {
		t.Errorf("通知应携带评论 ID")
	}
}

func TestDeleteCommentOwnership(t *testing.T) {
	h, store, _ := newTestHandler()
	p := createPost(t, h, "usr-1", "discuss")
	w, c := addComment(t, h, "usr-2", p.ID, "mine to delete")
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d", w.Code)
	}

	// 动态作者也不能删别人的评论
	r := httptest.NewRequest("DELETE", "/api/v1/comments/"+c.ID, nil)
	r.SetPathValue("id", c.ID)
	r = asPrincipal(r, "usr-1")
	rec := httptest.NewRecorder()
	h.DeleteComment(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	// 评论作者可删，动态上的引用被摘除
	r = httptest.NewRequest("DELETE", "/api/v1/comments/"+c.ID, nil)
	r.SetPathValue("id", c.ID)
	r = asPrincipal(r, "usr-2")
	rec = httptest.NewRecorder()
	h.DeleteComment(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	got, _ := store.GetPost(context.Background(), p.ID)
	if got.HasComment(c.ID) {
		t.Error("评论引用应被摘除")
	}
	if cm, _ := store.GetComment(context.Background(), c.ID); cm != nil {
		t.Error("评论文档应被删除")
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	h, store, _ := newTestHandler()
	old := &model.Post{ID: "post-old", AuthorID: "usr-1", Content: "old", CreatedAt: time.Now().Add(-time.Hour)}
	fresh := &model.Post{ID: "post-new", AuthorID: "usr-2", Content: "new", CreatedAt: time.Now()}
	store.CreatePost(context.Background(), old)
	store.CreatePost(context.Background(), fresh)

	r := httptest.NewRequest("GET", "/api/v1/posts", nil)
	w := httptest.NewRecorder()
	h.List(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out []model.Post
	json.Unmarshal(w.Body.Bytes(), &out)
	if len(out) != 2 || out[0].ID != "post-new" {
		t.Errorf("顺序应为最新在前: %+v", out)
	}
}
