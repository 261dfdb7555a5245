package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	// 内嵌数组统一初始化为空切片：
	// notifications 为 null 时 $[] 全量更新会失败
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Notifications == nil {
		user.Notifications = []model.Notification{}
	}
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "username", Value: username}})
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
	})
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, profile model.Profile) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "profile", Value: profile},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetUserAvatar(ctx context.Context, id, key string) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "avatar_key", Value: key},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetUserResume(ctx context.Context, id, key string) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "resume_key", Value: key},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "password_changed_at", Value: changedAt},
		{Key: "updated_at", Value: time.Now()},
	})
}

// ============================================================================
// 关注边（双边更新 + 尽力补偿）
// ============================================================================
//
// 两个文档的写入不在跨文档事务中（部署不假定副本集），
// 因此存在"一侧成功、另一侧失败"的窄竞争窗口。
// 处理策略：第二侧失败时对第一侧做补偿回滚；补偿也失败时返回
// ErrConflict 并记录日志，留给对账流程处理。

func (s *Store) AddFollowEdge(ctx context.Context, followerID, targetID string) error {
	// 第一侧：follower.following += target
	if err := updateByID(ctx, s.col(ColUsers), followerID, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "following", Value: targetID}}},
	}); err != nil {
		return err
	}

	// 第二侧：target.followers += follower
	if err := updateByID(ctx, s.col(ColUsers), targetID, bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "followers", Value: followerID}}},
	}); err != nil {
		if cerr := updateByID(ctx, s.col(ColUsers), followerID, bson.D{
			{Key: "$pull", Value: bson.D{{Key: "following", Value: targetID}}},
		}); cerr != nil {
			log.Printf("[mongostore] follow edge compensation failed: follower=%s target=%s: %v", followerID, targetID, cerr)
			return fmt.Errorf("%w: add follow edge: %v", storage.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (s *Store) RemoveFollowEdge(ctx context.Context, followerID, targetID string) error {
	if err := updateByID(ctx, s.col(ColUsers), followerID, bson.D{
		{Key: "$pull", Value: bson.D{{Key: "following", Value: targetID}}},
	}); err != nil {
		return err
	}

	if err := updateByID(ctx, s.col(ColUsers), targetID, bson.D{
		{Key: "$pull", Value: bson.D{{Key: "followers", Value: followerID}}},
	}); err != nil {
		if cerr := updateByID(ctx, s.col(ColUsers), followerID, bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "following", Value: targetID}}},
		}); cerr != nil {
			log.Printf("[mongostore] unfollow edge compensation failed: follower=%s target=%s: %v", followerID, targetID, cerr)
			return fmt.Errorf("%w: remove follow edge: %v", storage.ErrConflict, err)
		}
		return err
	}
	return nil
}

// ============================================================================
// 通知邮箱
// ============================================================================

func (s *Store) PushNotification(ctx context.Context, userID string, n model.Notification) error {
	return updateByID(ctx, s.col(ColUsers), userID, bson.D{
		{Key: "$push", Value: bson.D{{Key: "notifications", Value: n}}},
	})
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return updateByID(ctx, s.col(ColUsers), userID, bson.D{
		{Key: "$set", Value: bson.D{{Key: "notifications.$[].read", Value: true}}},
	})
}

// MarkNotificationRead 将单条通知置为已读
// 通知 ID 不存在时静默成功（幂等语义与 mark-all 一致）
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return updateByID(ctx, s.col(ColUsers), userID, bson.D{
		{Key: "$set", Value: bson.D{{Key: "notifications.$[n].read", Value: true}}},
	}, options.UpdateOne().SetArrayFilters([]interface{}{
		bson.D{{Key: "n.id", Value: notificationID}},
	}))
}

// ============================================================================
// UserVerificationStore
// ============================================================================
//
// "清空验证码 + 用途化变更"在单次 UpdateOne 中完成，
// 过滤条件同时匹配 _id 与当前验证码。两个并发消费只有一个能命中文档，
// 另一个拿到 MatchedCount == 0（ErrNotFound），保证验证码单次使用。

func (s *Store) SetUserOTP(ctx context.Context, id, code string, purpose model.OTPPurpose, expiresAt time.Time) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "otp", Value: code},
		{Key: "otp_purpose", Value: purpose},
		{Key: "otp_expires_at", Value: expiresAt},
		{Key: "updated_at", Value: time.Now()},
	})
}

// clearOTPFields 清空验证码字段的 $unset 文档
func clearOTPFields() bson.E {
	return bson.E{Key: "$unset", Value: bson.D{
		{Key: "otp", Value: ""},
		{Key: "otp_purpose", Value: ""},
		{Key: "otp_expires_at", Value: ""},
	}}
}

// otpFilter 同时匹配 _id 与当前验证码
func otpFilter(id, code string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "otp", Value: code},
	}
}

func (s *Store) ClearUserOTPAndVerifyEmail(ctx context.Context, id, code string) error {
	return updateWhere(ctx, s.col(ColUsers), otpFilter(id, code), bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "email_verified", Value: true},
			{Key: "updated_at", Value: time.Now()},
		}},
		clearOTPFields(),
	})
}

func (s *Store) ClearUserOTPAndSetPhone(ctx context.Context, id, code, phone string) error {
	return updateWhere(ctx, s.col(ColUsers), otpFilter(id, code), bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "phone", Value: phone},
			{Key: "phone_verified", Value: true},
			{Key: "updated_at", Value: time.Now()},
		}},
		clearOTPFields(),
	})
}

func (s *Store) ClearUserOTPAndSetPassword(ctx context.Context, id, code, passwordHash string, changedAt time.Time) error {
	return updateWhere(ctx, s.col(ColUsers), otpFilter(id, code), bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "password_changed_at", Value: changedAt},
			{Key: "updated_at", Value: time.Now()},
		}},
		clearOTPFields(),
	})
}

func (s *Store) SetUserResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return updateFields(ctx, s.col(ColUsers), id, bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expires_at", Value: expiresAt},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) GetUserByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expires_at", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (s *Store) ClearUserResetTokenAndSetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return updateByID(ctx, s.col(ColUsers), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "password_changed_at", Value: changedAt},
			{Key: "updated_at", Value: time.Now()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "reset_token_hash", Value: ""},
			{Key: "reset_token_expires_at", Value: ""},
		}},
	})
}
