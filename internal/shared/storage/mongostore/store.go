// Package mongostore 实现基于 MongoDB 的 PersistentStore
//
// 使用 mongo-go-driver v2，通过 bson tag 实现 model 结构体的序列化/反序列化。
// 所有 Collection 名称和索引在 ensureIndexes 中统一管理。
//
// 唯一性约束（email/username、职位+用户的申请去重）由 MongoDB 唯一索引保证，
// 不做应用层加锁；唯一键冲突统一转换为 storage.ErrDuplicate。
package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"careerhub/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection 名称常量
const (
	ColUsers        = "users"
	ColRecruiters   = "recruiters"
	ColPosts        = "posts"
	ColComments     = "comments"
	ColJobs         = "jobs"
	ColApplications = "applications"
	ColCompanies    = "companies"
)

// Store 实现 storage.PersistentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// 编译期校验
var _ storage.PersistentStore = (*Store)(nil)

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017"
// dbName: 数据库名称，如 "careerhub"
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	// 验证连接
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{client: client, db: db}

	// 创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("WARNING: mongostore: ensure indexes failed: %v", err)
	}

	return s, nil
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// users：两类主体各自集合内 email/username 全局唯一
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "username", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "reset_token_hash", Value: 1}}, false},

		// recruiters
		{ColRecruiters, bson.D{{Key: "email", Value: 1}}, true},
		{ColRecruiters, bson.D{{Key: "username", Value: 1}}, true},

		// posts
		{ColPosts, bson.D{{Key: "author_id", Value: 1}}, false},
		{ColPosts, bson.D{{Key: "created_at", Value: -1}}, false},

		// comments
		{ColComments, bson.D{{Key: "post_id", Value: 1}}, false},

		// jobs
		{ColJobs, bson.D{{Key: "recruiter_id", Value: 1}}, false},
		{ColJobs, bson.D{{Key: "status", Value: 1}}, false},
		{ColJobs, bson.D{{Key: "created_at", Value: -1}}, false},

		// applications：同一用户对同一职位只能申请一次
		{ColApplications, bson.D{{Key: "job_id", Value: 1}, {Key: "user_id", Value: 1}}, true},
		{ColApplications, bson.D{{Key: "user_id", Value: 1}}, false},

		// companies
		{ColCompanies, bson.D{{Key: "owner_id", Value: 1}}, false},
	}

	for _, i := range indexes {
		idxModel := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			idxModel.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, idxModel); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
