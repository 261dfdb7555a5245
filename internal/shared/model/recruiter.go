// Package model 定义核心数据模型
//
// recruiter.go 包含招聘者相关的数据模型定义。
// 招聘者与用户是两类独立主体，存放在不同集合，令牌有效期也不同
package model

import "time"

// Recruiter 招聘者
type Recruiter struct {
	ID           string `json:"id" bson:"_id"`
	Email        string `json:"email" bson:"email"`
	Username     string `json:"username" bson:"username"`
	PasswordHash string `json:"-" bson:"password_hash"` // never expose in JSON
	Name         string `json:"name,omitempty" bson:"name,omitempty"`
	Title        string `json:"title,omitempty" bson:"title,omitempty"`
	CompanyID    string `json:"company_id,omitempty" bson:"company_id,omitempty"`
	AvatarKey    string `json:"avatar_key,omitempty" bson:"avatar_key,omitempty"`

	EmailVerified bool `json:"email_verified" bson:"email_verified"`

	// 与 User 相同的验证码/重置令牌/密码时间戳语义
	OTP                 string     `json:"-" bson:"otp,omitempty"`
	OTPPurpose          OTPPurpose `json:"-" bson:"otp_purpose,omitempty"`
	OTPExpiresAt        time.Time  `json:"-" bson:"otp_expires_at,omitempty"`
	ResetTokenHash      string     `json:"-" bson:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt time.Time  `json:"-" bson:"reset_token_expires_at,omitempty"`
	PasswordChangedAt   time.Time  `json:"-" bson:"password_changed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Company 公司
type Company struct {
	ID        string    `json:"id" bson:"_id"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"` // 创建公司的招聘者
	Name      string    `json:"name" bson:"name"`
	Website   string    `json:"website,omitempty" bson:"website,omitempty"`
	About     string    `json:"about,omitempty" bson:"about,omitempty"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
	LogoKey   string    `json:"logo_key,omitempty" bson:"logo_key,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
