package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"careerhub/internal/apiserver/auth"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// memStore 内存版 PersistentStore，驱动整条路由链的端到端测试
type memStore struct {
	mu           sync.Mutex
	users        map[string]*model.User
	recruiters   map[string]*model.Recruiter
	posts        map[string]*model.Post
	comments     map[string]*model.Comment
	jobs         map[string]*model.Job
	applications map[string]*model.Application
	companies    map[string]*model.Company
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*model.User),
		recruiters:   make(map[string]*model.Recruiter),
		posts:        make(map[string]*model.Post),
		comments:     make(map[string]*model.Comment),
		jobs:         make(map[string]*model.Job),
		applications: make(map[string]*model.Application),
		companies:    make(map[string]*model.Company),
	}
}

func (s *memStore) Close() error { return nil }

// ---- UserStore ----

func (s *memStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.users {
		if e.Email == u.Email || e.Username == u.Username {
			return storage.ErrDuplicate
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUsersByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateUserProfile(_ context.Context, id string, profile model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Profile = profile
	return nil
}

func (s *memStore) SetUserAvatar(_ context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.AvatarKey = key
	return nil
}

func (s *memStore) SetUserResume(_ context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResumeKey = key
	return nil
}

func (s *memStore) UpdateUserPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

func (s *memStore) AddFollowEdge(_ context.Context, followerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	follower, ok1 := s.users[followerID]
	target, ok2 := s.users[targetID]
	if !ok1 || !ok2 {
		return storage.ErrNotFound
	}
	follower.Following = addToSet(follower.Following, targetID)
	target.Followers = addToSet(target.Followers, followerID)
	return nil
}

func (s *memStore) RemoveFollowEdge(_ context.Context, followerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	follower, ok1 := s.users[followerID]
	target, ok2 := s.users[targetID]
	if !ok1 || !ok2 {
		return storage.ErrNotFound
	}
	follower.Following = removeFromSet(follower.Following, targetID)
	target.Followers = removeFromSet(target.Followers, followerID)
	return nil
}

func (s *memStore) PushNotification(_ context.Context, userID string, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		// 接收者也可能是招聘者
		if r, rok := s.recruiters[userID]; rok {
			_ = r // 招聘者通知没有内嵌邮箱，丢弃
			return nil
		}
		return storage.ErrNotFound
	}
	u.Notifications = append(u.Notifications, n)
	return nil
}

func (s *memStore) MarkAllNotificationsRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	for i := range u.Notifications {
		u.Notifications[i].Read = true
	}
	return nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	for i := range u.Notifications {
		if u.Notifications[i].ID == notificationID {
			u.Notifications[i].Read = true
			return nil
		}
	}
	return storage.ErrNotFound
}

// ---- UserVerificationStore ----

func (s *memStore) SetUserOTP(_ context.Context, id, code string, purpose model.OTPPurpose, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.OTP = code
	u.OTPPurpose = purpose
	u.OTPExpiresAt = expiresAt
	return nil
}

func (s *memStore) ClearUserOTPAndVerifyEmail(_ context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	s.clearOTP(u)
	u.EmailVerified = true
	return nil
}

func (s *memStore) ClearUserOTPAndSetPhone(_ context.Context, id, code, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	s.clearOTP(u)
	u.Phone = phone
	u.PhoneVerified = true
	return nil
}

func (s *memStore) ClearUserOTPAndSetPassword(_ context.Context, id, code, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	s.clearOTP(u)
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

func (s *memStore) clearOTP(u *model.User) {
	u.OTP = ""
	u.OTPPurpose = ""
	u.OTPExpiresAt = time.Time{}
}

func (s *memStore) SetUserResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiresAt = expiresAt
	return nil
}

func (s *memStore) GetUserByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetTokenHash == tokenHash && u.ResetTokenExpiresAt.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ClearUserResetTokenAndSetPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = time.Time{}
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

// ---- RecruiterStore ----

func (s *memStore) CreateRecruiter(_ context.Context, r *model.Recruiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.recruiters {
		if e.Email == r.Email || e.Username == r.Username {
			return storage.ErrDuplicate
		}
	}
	cp := *r
	s.recruiters[r.ID] = &cp
	return nil
}

func (s *memStore) GetRecruiterByID(_ context.Context, id string) (*model.Recruiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recruiters[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) GetRecruiterByEmail(_ context.Context, email string) (*model.Recruiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recruiters {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetRecruiterByUsername(_ context.Context, username string) (*model.Recruiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recruiters {
		if r.Username == username {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateRecruiterPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recruiters[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.PasswordHash = hash
	r.PasswordChangedAt = changedAt
	return nil
}

func (s *memStore) SetRecruiterCompany(_ context.Context, id, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recruiters[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.CompanyID = companyID
	return nil
}

// ---- PostStore ----

func (s *memStore) CreatePost(_ context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *memStore) GetPost(_ context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListPosts(_ context.Context, limit, offset int) ([]*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Post
	for _, p := range s.posts {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) ListPostsByAuthor(_ context.Context, authorID string) ([]*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Post
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *memStore) AddLike(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	p.Likes = addToSet(p.Likes, userID)
	return nil
}

func (s *memStore) RemoveLike(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	p.Likes = removeFromSet(p.Likes, userID)
	return nil
}

func (s *memStore) AddComment(_ context.Context, c *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[c.PostID]
	if !ok {
		return storage.ErrNotFound
	}
	cp := *c
	s.comments[c.ID] = &cp
	p.CommentIDs = append(p.CommentIDs, c.ID)
	return nil
}

func (s *memStore) GetComment(_ context.Context, id string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListComments(_ context.Context, postID string) ([]*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return storage.ErrNotFound
	}
	if p, pok := s.posts[c.PostID]; pok {
		p.CommentIDs = removeFromSet(p.CommentIDs, id)
	}
	delete(s.comments, id)
	return nil
}

// ---- JobStore ----

func (s *memStore) CreateJob(_ context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *memStore) GetJob(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListJobs(_ context.Context, limit, offset int) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, j := range s.jobs {
		if j.Status == model.JobStatusOpen {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListJobsByRecruiter(_ context.Context, recruiterID string) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, j := range s.jobs {
		if j.RecruiterID == recruiterID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateJob(_ context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *memStore) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *memStore) CreateApplication(_ context.Context, a *model.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.applications {
		if e.JobID == a.JobID && e.UserID == a.UserID {
			return storage.ErrDuplicate
		}
	}
	cp := *a
	s.applications[a.ID] = &cp
	return nil
}

func (s *memStore) GetApplication(_ context.Context, id string) (*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.applications[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListApplicationsByJob(_ context.Context, jobID string) ([]*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Application
	for _, a := range s.applications {
		if a.JobID == jobID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListApplicationsByUser(_ context.Context, userID string) ([]*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Application
	for _, a := range s.applications {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateApplicationStatus(_ context.Context, id string, status model.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Status = status
	return nil
}

// ---- CompanyStore ----

func (s *memStore) CreateCompany(_ context.Context, c *model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

func (s *memStore) GetCompany(_ context.Context, id string) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListCompanies(_ context.Context, limit, offset int) ([]*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Company
	for _, c := range s.companies {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) UpdateCompany(_ context.Context, c *model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

func addToSet(set []string, v string) []string {
	for _, e := range set {
		if e == v {
			return set
		}
	}
	return append(set, v)
}

func removeFromSet(set []string, v string) []string {
	out := set[:0]
	for _, e := range set {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}

// ---- 端到端测试 ----

// do 把请求直接打到路由链上
func do(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: token})
	}
	return serve(router, req)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.TokenCookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie in response")
	return ""
}

// waitForNotification 轮询用户邮箱直到通知出现，投递是异步的
func waitForNotification(t *testing.T, store *memStore, userID string, ntype model.NotificationType) model.Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		if u, ok := store.users[userID]; ok {
			for _, n := range u.Notifications {
				if n.Type == ntype {
					store.mu.Unlock()
					return n
				}
			}
		}
		store.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("notification %s for %s never arrived", ntype, userID)
	return model.Notification{}
}

func TestRouterEndToEnd(t *testing.T) {
	store := newMemStore()

	cfg := auth.DefaultConfig()
	cfg.JWTSecret = "router-test-secret"

	h := NewHandler(store, cfg)
	h.SetCORSOrigin("http://localhost:3000")
	h.Notifier().Start(1)
	defer h.Notifier().Stop()

	router := h.Router()

	t.Run("公开端点免认证", func(t *testing.T) {
		for _, path := range []string{"/healthz", "/docs", "/openapi.yaml"} {
			if w := do(router, "GET", path, "", nil); w.Code != http.StatusOK {
				t.Errorf("GET %s = %d, want 200", path, w.Code)
			}
		}
	})

	t.Run("受保护端点未认证返回 401", func(t *testing.T) {
		if w := do(router, "GET", "/api/v1/posts", "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("WebSocket 路由要求会话", func(t *testing.T) {
		if w := do(router, "GET", "/ws/notifications", "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	// 注册两个用户和一个招聘者，后续子测试复用
	aliceResp := do(router, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "password-1", "name": "Alice",
	})
	if aliceResp.Code != http.StatusCreated {
		t.Fatalf("register alice = %d: %s", aliceResp.Code, aliceResp.Body.String())
	}
	aliceToken := sessionToken(t, aliceResp)

	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(aliceResp.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	aliceID := registered.User.ID

	bobResp := do(router, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "bob@example.com", "username": "bob", "password": "password-2",
	})
	bobToken := sessionToken(t, bobResp)

	recResp := do(router, "POST", "/api/v1/recruiters/register", "", map[string]string{
		"email": "hr@corp.example.com", "username": "corp-hr", "password": "password-3",
	})
	if recResp.Code != http.StatusCreated {
		t.Fatalf("register recruiter = %d: %s", recResp.Code, recResp.Body.String())
	}
	recToken := sessionToken(t, recResp)

	t.Run("CORS 头贯穿整条链", func(t *testing.T) {
		w := do(router, "GET", "/api/v1/auth/me", aliceToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("me = %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("allow origin = %q", got)
		}
	})

	var postID string
	t.Run("发动态和点赞触发通知", func(t *testing.T) {
		w := do(router, "POST", "/api/v1/posts", aliceToken, map[string]string{"content": "hello careerhub"})
		if w.Code != http.StatusCreated {
			t.Fatalf("create post = %d: %s", w.Code, w.Body.String())
		}
		var post model.Post
		if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
			t.Fatalf("decode post: %v", err)
		}
		postID = post.ID

		w = do(router, "POST", "/api/v1/posts/"+postID+"/like", bobToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("like = %d: %s", w.Code, w.Body.String())
		}
		n := waitForNotification(t, store, aliceID, model.NotificationLike)
		if n.From == "" {
			t.Error("like notification has no sender")
		}
	})

	t.Run("关注触发通知", func(t *testing.T) {
		w := do(router, "POST", "/api/v1/users/"+aliceID+"/follow", bobToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("follow = %d: %s", w.Code, w.Body.String())
		}
		waitForNotification(t, store, aliceID, model.NotificationFollow)
	})

	t.Run("职位发布与申请", func(t *testing.T) {
		w := do(router, "POST", "/api/v1/jobs", recToken, map[string]string{
			"title": "Go Engineer", "description": "Build the platform",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create job = %d: %s", w.Code, w.Body.String())
		}
		var job model.Job
		if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode job: %v", err)
		}

		// 普通用户不能发布职位
		if w := do(router, "POST", "/api/v1/jobs", aliceToken, map[string]string{
			"title": "x", "description": "y",
		}); w.Code != http.StatusForbidden {
			t.Errorf("user create job = %d, want 403", w.Code)
		}

		if w := do(router, "POST", "/api/v1/jobs/"+job.ID+"/apply", aliceToken, nil); w.Code != http.StatusCreated {
			t.Fatalf("apply = %d: %s", w.Code, w.Body.String())
		}
		// 重复申请
		if w := do(router, "POST", "/api/v1/jobs/"+job.ID+"/apply", aliceToken, nil); w.Code != http.StatusConflict {
			t.Errorf("duplicate apply = %d, want 409", w.Code)
		}

		w = do(router, "GET", "/api/v1/jobs/"+job.ID+"/applications", recToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list applications = %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("通知收件箱可读", func(t *testing.T) {
		w := do(router, "GET", "/api/v1/users/me/notifications", aliceToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("notifications = %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "follow") {
			t.Errorf("inbox missing follow notification: %s", w.Body.String())
		}
	})

	t.Run("指标端点暴露请求计数", func(t *testing.T) {
		w := do(router, "GET", "/metrics", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("metrics = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "careerhub_http_requests_total") {
			t.Error("metrics output missing careerhub_http_requests_total")
		}
	})
}
