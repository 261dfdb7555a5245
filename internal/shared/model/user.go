// Package model 定义核心数据模型
//
// user.go 包含用户（求职者）相关的数据模型定义：
//   - User：用户主体，含认证凭据、个人档案、关注关系和通知邮箱
//   - Profile：自由格式的个人档案子文档
//   - Experience / Education：档案中的经历条目
//
// 设计理念：
//   - User 是自包含文档：关注边和通知直接内嵌在用户文档上，
//     不使用独立的边表（与 MongoDB 文档模型对齐）
//   - PasswordHash 永不对外序列化（json:"-"）
//   - PasswordChangedAt 用于使旧令牌失效：签发时间早于该时间的令牌视为过期
package model

import (
	"strings"
	"time"
)

// AuthProvider 账号来源
type AuthProvider string

const (
	// AuthProviderLocal 本地密码注册
	AuthProviderLocal AuthProvider = "local"

	// AuthProviderGoogle Google OAuth 导入
	AuthProviderGoogle AuthProvider = "google"

	// AuthProviderGithub GitHub OAuth 导入
	AuthProviderGithub AuthProvider = "github"
)

// OTPPurpose 一次性验证码用途
type OTPPurpose string

const (
	// OTPPurposeVerifyEmail 邮箱验证
	OTPPurposeVerifyEmail OTPPurpose = "verify_email"

	// OTPPurposeResetPassword 密码重置
	OTPPurposeResetPassword OTPPurpose = "reset_password"

	// OTPPurposeChangePhone 手机号变更
	OTPPurposeChangePhone OTPPurpose = "change_phone"
)

// ============================================================================
// Profile - 个人档案子文档
// ============================================================================

// Experience 工作经历条目
type Experience struct {
	Title     string `json:"title" bson:"title"`
	Company   string `json:"company" bson:"company"`
	Location  string `json:"location,omitempty" bson:"location,omitempty"`
	StartYear int    `json:"start_year,omitempty" bson:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty" bson:"end_year,omitempty"`
	Summary   string `json:"summary,omitempty" bson:"summary,omitempty"`
}

// Education 教育经历条目
type Education struct {
	School    string `json:"school" bson:"school"`
	Degree    string `json:"degree,omitempty" bson:"degree,omitempty"`
	Field     string `json:"field,omitempty" bson:"field,omitempty"`
	StartYear int    `json:"start_year,omitempty" bson:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty" bson:"end_year,omitempty"`
}

// Profile 个人档案
// 所有字段均可选，集合类字段顺序无关
type Profile struct {
	Name       string       `json:"name,omitempty" bson:"name,omitempty"`
	Headline   string       `json:"headline,omitempty" bson:"headline,omitempty"`
	Bio        string       `json:"bio,omitempty" bson:"bio,omitempty"`
	Location   string       `json:"location,omitempty" bson:"location,omitempty"`
	Skills     []string     `json:"skills,omitempty" bson:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty" bson:"experience,omitempty"`
	Education  []Education  `json:"education,omitempty" bson:"education,omitempty"`
}

// ============================================================================
// User - 用户主体
// ============================================================================

// User 用户（求职者）
type User struct {
	ID           string       `json:"id" bson:"_id"`
	Email        string       `json:"email" bson:"email"`
	Username     string       `json:"username" bson:"username"`
	PasswordHash string       `json:"-" bson:"password_hash"` // never expose in JSON
	Provider     AuthProvider `json:"provider,omitempty" bson:"provider,omitempty"`
	Profile      Profile      `json:"profile" bson:"profile"`
	AvatarKey    string       `json:"avatar_key,omitempty" bson:"avatar_key,omitempty"`
	ResumeKey    string       `json:"resume_key,omitempty" bson:"resume_key,omitempty"`

	// 关注关系（内嵌 ID 集合，双向对称）
	Followers []string `json:"followers" bson:"followers"`
	Following []string `json:"following" bson:"following"`

	// 通知邮箱（内嵌，最新的在尾部，读取时反转）
	Notifications []Notification `json:"-" bson:"notifications"`

	// 验证状态
	EmailVerified bool   `json:"email_verified" bson:"email_verified"`
	Phone         string `json:"phone,omitempty" bson:"phone,omitempty"`
	PhoneVerified bool   `json:"phone_verified" bson:"phone_verified"`

	// 一次性验证码（单次使用，消费后清空）
	OTP          string     `json:"-" bson:"otp,omitempty"`
	OTPPurpose   OTPPurpose `json:"-" bson:"otp_purpose,omitempty"`
	OTPExpiresAt time.Time  `json:"-" bson:"otp_expires_at,omitempty"`

	// 密码重置令牌（仅存哈希，明文不落库）
	ResetTokenHash      string    `json:"-" bson:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt time.Time `json:"-" bson:"reset_token_expires_at,omitempty"`

	// 密码最后修改时间，早于该时间签发的令牌无效
	PasswordChangedAt time.Time `json:"-" bson:"password_changed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsFollowing 是否关注了指定用户
func (u *User) IsFollowing(userID string) bool {
	for _, id := range u.Following {
		if id == userID {
			return true
		}
	}
	return false
}

// HasFollower 是否被指定用户关注
func (u *User) HasFollower(userID string) bool {
	for _, id := range u.Followers {
		if id == userID {
			return true
		}
	}
	return false
}

// DisplayName 对外展示名：优先档案姓名，回退到用户名
func (u *User) DisplayName() string {
	if u.Profile.Name != "" {
		return u.Profile.Name
	}
	return u.Username
}

// HasValidOTP 是否存在匹配且未过期的验证码
func (u *User) HasValidOTP(code string, purpose OTPPurpose, now time.Time) bool {
	if u.OTP == "" || u.OTP != code || u.OTPPurpose != purpose {
		return false
	}
	return now.Before(u.OTPExpiresAt)
}

// PublicUser 用户公开视图（用于他人查看、通知快照）
type PublicUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Profile   Profile `json:"profile"`
	AvatarKey string  `json:"avatar_key,omitempty"`
	Followers int     `json:"followers"`
	Following int     `json:"following"`
}

// Public 返回公开视图
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Profile:   u.Profile,
		AvatarKey: u.AvatarKey,
		Followers: len(u.Followers),
		Following: len(u.Following),
	}
}

// NormalizeStringList 将"数组或逗号分隔字符串"二态输入规范化为字符串切片
//
// 表单提交的 skills 等字段可能以 ["Go","SQL"] 或 "Go, SQL" 两种形态到达，
// 必须在边界统一，深层逻辑不再区分运行时形态
func NormalizeStringList(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[strings.ToLower(part)] {
				continue
			}
			seen[strings.ToLower(part)] = true
			out = append(out, part)
		}
	}
	return out
}
