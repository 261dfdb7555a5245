package mongostore

import (
	"context"
	"fmt"
	"log"

	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// PostStore
// ============================================================================

func (s *Store) CreatePost(ctx context.Context, p *model.Post) error {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.CommentIDs == nil {
		p.CommentIDs = []string{}
	}
	return insertOne(ctx, s.col(ColPosts), p)
}

func (s *Store) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return findOne[model.Post](ctx, s.col(ColPosts), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	return findMany[model.Post](ctx, s.col(ColPosts), bson.D{}, pagedFindOpts(limit, offset))
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Post](ctx, s.col(ColPosts), bson.D{{Key: "author_id", Value: authorID}}, opts)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.col(ColPosts), id); err != nil {
		return err
	}
	// 孤儿评论清理：动态删除后其评论一并删除
	if _, err := s.col(ColComments).DeleteMany(ctx, bson.D{{Key: "post_id", Value: id}}); err != nil {
		log.Printf("[mongostore] delete comments of post %s failed: %v", id, err)
	}
	return nil
}

// 点赞集合：$addToSet/$pull 天然幂等

func (s *Store) AddLike(ctx context.Context, postID, userID string) error {
	return updateByID(ctx, s.col(ColPosts), postID, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}},
	})
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) error {
	return updateByID(ctx, s.col(ColPosts), postID, bson.D{
		{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}},
	})
}

// ============================================================================
// 评论（插入 + 引用挂载，双步更新与关注边同策略）
// ============================================================================

func (s *Store) AddComment(ctx context.Context, c *model.Comment) error {
	if err := insertOne(ctx, s.col(ColComments), c); err != nil {
		return err
	}

	if err := updateByID(ctx, s.col(ColPosts), c.PostID, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "comment_ids", Value: c.ID}}},
	}); err != nil {
		// 挂载失败：回收刚插入的评论文档
		if cerr := deleteByID(ctx, s.col(ColComments), c.ID); cerr != nil {
			log.Printf("[mongostore] comment attach compensation failed: comment=%s post=%s: %v", c.ID, c.PostID, cerr)
			return fmt.Errorf("%w: add comment: %v", storage.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	return findOne[model.Comment](ctx, s.col(ColComments), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findMany[model.Comment](ctx, s.col(ColComments), bson.D{{Key: "post_id", Value: postID}}, opts)
}

// DeleteComment 删除评论并把引用从 Post 上摘除
// 先摘引用后删文档：引用摘除成功而删除失败时，评论成为可重试的孤儿文档，
// 不会出现 Post 引用悬空的反向不一致
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	c, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return storage.ErrNotFound
	}

	if err := updateByID(ctx, s.col(ColPosts), c.PostID, bson.D{
		{Key: "$pull", Value: bson.D{{Key: "comment_ids", Value: id}}},
	}); err != nil && err != storage.ErrNotFound {
		return err
	}

	return deleteByID(ctx, s.col(ColComments), id)
}
