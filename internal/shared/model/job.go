// Package model 定义核心数据模型
//
// job.go 包含职位与求职申请相关的数据模型定义：
//   - Job：招聘者发布的职位
//   - Application：用户对职位的申请，状态变更会触发通知
package model

import "time"

// JobStatus 职位状态
type JobStatus string

const (
	// JobStatusOpen 开放申请
	JobStatusOpen JobStatus = "open"

	// JobStatusClosed 已关闭
	JobStatusClosed JobStatus = "closed"
)

// Job 职位
type Job struct {
	ID          string    `json:"id" bson:"_id"`
	RecruiterID string    `json:"recruiter_id" bson:"recruiter_id"`
	CompanyID   string    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Location    string    `json:"location,omitempty" bson:"location,omitempty"`
	Skills      []string  `json:"skills,omitempty" bson:"skills,omitempty"`
	SalaryMin   int       `json:"salary_min,omitempty" bson:"salary_min,omitempty"`
	SalaryMax   int       `json:"salary_max,omitempty" bson:"salary_max,omitempty"`
	Status      JobStatus `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ============================================================================
// Application - 求职申请
// ============================================================================

// ApplicationStatus 申请状态
type ApplicationStatus string

const (
	// ApplicationApplied 已申请
	ApplicationApplied ApplicationStatus = "applied"

	// ApplicationShortlisted 进入候选
	ApplicationShortlisted ApplicationStatus = "shortlisted"

	// ApplicationRejected 已拒绝
	ApplicationRejected ApplicationStatus = "rejected"

	// ApplicationHired 已录用
	ApplicationHired ApplicationStatus = "hired"
)

// ValidApplicationStatus 是否为合法申请状态
func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationApplied, ApplicationShortlisted, ApplicationRejected, ApplicationHired:
		return true
	}
	return false
}

// Application 求职申请
type Application struct {
	ID        string            `json:"id" bson:"_id"`
	JobID     string            `json:"job_id" bson:"job_id"`
	UserID    string            `json:"user_id" bson:"user_id"`
	ResumeKey string            `json:"resume_key,omitempty" bson:"resume_key,omitempty"`
	CoverNote string            `json:"cover_note,omitempty" bson:"cover_note,omitempty"`
	Status    ApplicationStatus `json:"status" bson:"status"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}
