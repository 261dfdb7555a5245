// Package model 定义核心数据模型
//
// notification.go 包含通知相关的数据模型定义：
//   - Notification：内嵌在接收者用户文档中的通知记录
//   - NotificationType：通知类型枚举
//
// 通知只会被"标记已读"操作修改，本设计中不删除（体积增长是已接受的限制）
package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType 通知类型
type NotificationType string

const (
	// NotificationFollow 关注
	NotificationFollow NotificationType = "follow"

	// NotificationLike 点赞
	NotificationLike NotificationType = "like"

	// NotificationComment 评论
	NotificationComment NotificationType = "comment"

	// NotificationMessage 私信
	NotificationMessage NotificationType = "message"

	// NotificationApplication 求职申请状态变更
	NotificationApplication NotificationType = "application"

	// NotificationOther 其他
	NotificationOther NotificationType = "other"
)

// ValidNotificationType 是否为合法通知类型
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationFollow, NotificationLike, NotificationComment,
		NotificationMessage, NotificationApplication, NotificationOther:
		return true
	}
	return false
}

// Notification 通知记录
// 接收者由存储位置隐含（内嵌在接收者的用户文档中）
type Notification struct {
	ID       string            `json:"id" bson:"id"`
	From     string            `json:"from" bson:"from"`
	Type     NotificationType  `json:"type" bson:"type"`
	Message  string            `json:"message" bson:"message"`
	Link     string            `json:"link,omitempty" bson:"link,omitempty"`
	Date     time.Time         `json:"date" bson:"date"`
	Read     bool              `json:"read" bson:"read"`
	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewNotification 创建通知记录
// 未知类型归为 other；已读状态初始为 false
func NewNotification(from string, ntype NotificationType, message, link string, metadata map[string]string) Notification {
	if !ValidNotificationType(ntype) {
		ntype = NotificationOther
	}
	return Notification{
		ID:       uuid.NewString(),
		From:     from,
		Type:     ntype,
		Message:  message,
		Link:     link,
		Date:     time.Now(),
		Read:     false,
		Metadata: metadata,
	}
}

// NotificationView 通知的 API 输出视图
// Sender 是读取时刻发送者公开展示字段的反规范化快照
type NotificationView struct {
	Notification
	Sender *NotificationSender `json:"sender,omitempty"`
}

// NotificationSender 发送者展示快照
type NotificationSender struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarKey string `json:"avatar_key,omitempty"`
}
