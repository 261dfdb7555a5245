// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现
//
// 各 Handler 包只依赖自己声明的窄接口（接口隔离原则），
// 本文件的组合接口用于驱动实现的编译期校验和入口装配。
package storage

import (
	"context"
	"time"

	"careerhub/internal/shared/model"
)

// ============================================================================
// UserStore - 用户主体 + 关注关系 + 通知邮箱
// ============================================================================

// UserStore 用户存储接口
type UserStore interface {
	// CreateUser 创建用户；email/username 唯一键冲突时返回 ErrDuplicate
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// GetUsersByIDs 批量获取（通知发送者快照、关注列表）
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)

	UpdateUserProfile(ctx context.Context, id string, profile model.Profile) error
	SetUserAvatar(ctx context.Context, id, key string) error
	SetUserResume(ctx context.Context, id, key string) error

	// UpdateUserPassword 重置密码哈希并推进 password_changed_at，
	// 使所有早于 changedAt 签发的令牌失效
	UpdateUserPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// 关注边：两侧文档作为一次逻辑操作更新，
	// 第二侧失败时对第一侧做尽力补偿（见 mongostore 实现）
	AddFollowEdge(ctx context.Context, followerID, targetID string) error
	RemoveFollowEdge(ctx context.Context, followerID, targetID string) error

	// 通知邮箱（内嵌在接收者文档上）
	PushNotification(ctx context.Context, userID string, n model.Notification) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// UserVerificationStore 用户验证流程存储接口
// 清空验证码与用途化变更在单次文档更新中完成（单次使用保证）。
// ClearUserOTPAnd* 只在 code 仍是存储中的验证码时生效，
// 验证码已被并发消费时返回 ErrNotFound。
type UserVerificationStore interface {
	SetUserOTP(ctx context.Context, id, code string, purpose model.OTPPurpose, expiresAt time.Time) error
	ClearUserOTPAndVerifyEmail(ctx context.Context, id, code string) error
	ClearUserOTPAndSetPhone(ctx context.Context, id, code, phone string) error
	ClearUserOTPAndSetPassword(ctx context.Context, id, code, passwordHash string, changedAt time.Time) error

	SetUserResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// GetUserByResetTokenHash 仅匹配未过期的令牌哈希
	GetUserByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	ClearUserResetTokenAndSetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// ============================================================================
// RecruiterStore - 招聘者主体
// ============================================================================

// RecruiterStore 招聘者存储接口
type RecruiterStore interface {
	CreateRecruiter(ctx context.Context, r *model.Recruiter) error
	GetRecruiterByID(ctx context.Context, id string) (*model.Recruiter, error)
	GetRecruiterByEmail(ctx context.Context, email string) (*model.Recruiter, error)
	GetRecruiterByUsername(ctx context.Context, username string) (*model.Recruiter, error)
	UpdateRecruiterPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetRecruiterCompany(ctx context.Context, id, companyID string) error
}

// ============================================================================
// PostStore - 动态、点赞、评论
// ============================================================================

// PostStore 动态存储接口
type PostStore interface {
	CreatePost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)
	DeletePost(ctx context.Context, id string) error

	// 点赞集合（幂等：重复添加/移除不报错）
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error

	// AddComment 插入评论文档并把引用挂到 Post 上（两步，一次逻辑操作）
	AddComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*model.Comment, error)
	// DeleteComment 删除评论文档并把引用从 Post 上摘除
	DeleteComment(ctx context.Context, id string) error
}

// ============================================================================
// JobStore / CompanyStore - 职位、申请、公司
// ============================================================================

// JobStore 职位存储接口
type JobStore interface {
	CreateJob(ctx context.Context, j *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error)
	ListJobsByRecruiter(ctx context.Context, recruiterID string) ([]*model.Job, error)
	UpdateJob(ctx context.Context, j *model.Job) error
	DeleteJob(ctx context.Context, id string) error

	// CreateApplication 同一用户对同一职位重复申请返回 ErrDuplicate
	CreateApplication(ctx context.Context, a *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]*model.Application, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]*model.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error
}

// CompanyStore 公司存储接口
type CompanyStore interface {
	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, limit, offset int) ([]*model.Company, error)
	UpdateCompany(ctx context.Context, c *model.Company) error
}

// ============================================================================
// PersistentStore - 组合接口
// ============================================================================

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	UserVerificationStore
	RecruiterStore
	PostStore
	JobStore
	CompanyStore

	Close() error
}
