// Package model 定义核心数据模型
//
// post.go 包含动态与评论相关的数据模型定义：
//   - Post：用户动态，点赞集合内嵌、评论以 ID 引用
//   - Comment：独立集合中的评论文档
//
// 设计理念：
//   - 点赞是内嵌在 Post 上的用户 ID 集合（幂等切换）
//   - 评论归属于且仅归属于一个 Post 和一个作者；
//     删除评论时需要把引用从 Post 上摘除（两步更新，见存储层）
package model

import "time"

// Post 用户动态
type Post struct {
	ID         string    `json:"id" bson:"_id"`
	AuthorID   string    `json:"author_id" bson:"author_id"`
	Content    string    `json:"content" bson:"content"`
	MediaKey   string    `json:"media_key,omitempty" bson:"media_key,omitempty"`
	Likes      []string  `json:"likes" bson:"likes"`
	CommentIDs []string  `json:"comment_ids" bson:"comment_ids"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// LikedBy 指定用户是否已点赞
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// HasComment 是否引用了指定评论
func (p *Post) HasComment(commentID string) bool {
	for _, id := range p.CommentIDs {
		if id == commentID {
			return true
		}
	}
	return false
}

// Comment 评论
type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	PostID    string    `json:"post_id" bson:"post_id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
