package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// fakeStore 内存用户存储，测试用
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*model.User // by ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*model.User{}}
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

func (f *fakeStore) SetUserOTP(_ context.Context, id, code string, purpose model.OTPPurpose, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.OTP = code
	u.OTPPurpose = purpose
	u.OTPExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) clearOTP(u *model.User) {
	u.OTP = ""
	u.OTPPurpose = ""
	u.OTPExpiresAt = time.Time{}
}

func (f *fakeStore) ClearUserOTPAndVerifyEmail(_ context.Context, id, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	f.clearOTP(u)
	u.EmailVerified = true
	return nil
}

func (f *fakeStore) ClearUserOTPAndSetPhone(_ context.Context, id, code, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	f.clearOTP(u)
	u.Phone = phone
	u.PhoneVerified = true
	return nil
}

func (f *fakeStore) ClearUserOTPAndSetPassword(_ context.Context, id, code, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.OTP != code {
		return storage.ErrNotFound
	}
	f.clearOTP(u)
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

func (f *fakeStore) SetUserResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) GetUserByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetTokenHash == tokenHash && u.ResetTokenExpiresAt.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ClearUserResetTokenAndSetPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = time.Time{}
	u.PasswordHash = hash
	u.PasswordChangedAt = changedAt
	return nil
}

// fakeRecruiterStore 招聘者加载桩
type fakeRecruiterStore struct {
	recruiters map[string]*model.Recruiter
}

func (f *fakeRecruiterStore) GetRecruiterByID(_ context.Context, id string) (*model.Recruiter, error) {
	if f.recruiters == nil {
		return nil, nil
	}
	return f.recruiters[id], nil
}

// recordingSender 记录投递内容的邮件/短信桩
type recordingSender struct {
	mu     sync.Mutex
	emails []sentMessage
	sms    []sentMessage
	fail   bool
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

func (s *recordingSender) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *recordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unreachable")
	}
	s.emails = append(s.emails, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) SendSMS(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sms gateway unreachable")
	}
	s.sms = append(s.sms, sentMessage{To: to, Body: body})
	return nil
}

func (s *recordingSender) lastEmail() *sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.emails) == 0 {
		return nil
	}
	return &s.emails[len(s.emails)-1]
}

func (s *recordingSender) lastSMS() *sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sms) == 0 {
		return nil
	}
	return &s.sms[len(s.sms)-1]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	return cfg
}
