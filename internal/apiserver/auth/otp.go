package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"careerhub/internal/mailer"
	"careerhub/internal/shared/model"
	"careerhub/internal/shared/storage"
)

// OTPTTL 验证码有效期
const OTPTTL = 10 * time.Minute

// ResetTokenTTL 重置令牌有效期，与验证码一致
const ResetTokenTTL = 10 * time.Minute

// ErrInvalidOTP 验证码无效、过期或用途不符
var ErrInvalidOTP = errors.New("invalid or expired code")

// ErrInvalidResetToken 重置令牌无效或过期
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ErrDelivery 验证码投递失败（上游网关错误）
var ErrDelivery = errors.New("delivery failed")

// VerificationStore 验证流程存储依赖
type VerificationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	storage.UserVerificationStore
}

// Verifier 验证码与重置令牌流程
// 验证码一次性使用：消费时清空与用途化变更在单次存储更新中完成
type Verifier struct {
	store VerificationStore
	email mailer.EmailSender
	sms   mailer.SMSSender
}

// NewVerifier 创建验证流程
func NewVerifier(store VerificationStore, email mailer.EmailSender, sms mailer.SMSSender) *Verifier {
	return &Verifier{store: store, email: email, sms: sms}
}

// GenerateOTP 生成 6 位数字验证码（crypto/rand）
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IssueOTP 生成并存储验证码，再按用途投递
// 投递失败时整个操作视为失败（返回 ErrDelivery），调用方应答 502
func (v *Verifier) IssueOTP(ctx context.Context, user *model.User, purpose model.OTPPurpose, phone string) error {
	code, err := GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := v.store.SetUserOTP(ctx, user.ID, code, purpose, time.Now().Add(OTPTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	switch purpose {
	case model.OTPPurposeChangePhone:
		body := fmt.Sprintf("Your CareerHub verification code is %s. It expires in 10 minutes.", code)
		if err := v.sms.SendSMS(ctx, phone, body); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	default:
		subject := "Your CareerHub verification code"
		body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
		if err := v.email.SendEmail(ctx, user.Email, subject, body); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	}
	return nil
}

// ConsumeOTPArgs 消费验证码的用途化参数
type ConsumeOTPArgs struct {
	NewPassword string // reset_password 用途
	Phone       string // change_phone 用途
}

// ConsumeOTP 校验并消费验证码，按用途执行对应变更
// 任何不匹配（码错、过期、用途不符）都返回同一错误，不泄露失败原因。
// 存储侧的清空以"验证码仍在文档上"为条件，并发消费只有一个成功
func (v *Verifier) ConsumeOTP(ctx context.Context, user *model.User, code string, purpose model.OTPPurpose, args ConsumeOTPArgs) error {
	if !user.HasValidOTP(code, purpose, time.Now()) {
		return ErrInvalidOTP
	}

	var err error
	switch purpose {
	case model.OTPPurposeVerifyEmail:
		err = v.store.ClearUserOTPAndVerifyEmail(ctx, user.ID, code)
	case model.OTPPurposeChangePhone:
		if args.Phone == "" {
			return ErrInvalidOTP
		}
		err = v.store.ClearUserOTPAndSetPhone(ctx, user.ID, code, args.Phone)
	case model.OTPPurposeResetPassword:
		if args.NewPassword == "" {
			return ErrInvalidOTP
		}
		hash, herr := HashPassword(args.NewPassword)
		if herr != nil {
			return fmt.Errorf("hash password: %w", herr)
		}
		err = v.store.ClearUserOTPAndSetPassword(ctx, user.ID, code, hash, time.Now())
	default:
		return ErrInvalidOTP
	}
	if errors.Is(err, storage.ErrNotFound) {
		// 加载后、清空前被另一个请求消费
		return ErrInvalidOTP
	}
	return err
}

// IssueResetToken 生成重置令牌并邮件投递
// 存储的是令牌的 SHA-256 哈希，明文只出现在邮件里
func (v *Verifier) IssueResetToken(ctx context.Context, user *model.User, resetURLBase string) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	hash := HashResetToken(token)

	if err := v.store.SetUserResetToken(ctx, user.ID, hash, time.Now().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	subject := "Reset your CareerHub password"
	body := fmt.Sprintf("Use this token to reset your password: %s\nIt expires in 10 minutes.", token)
	if resetURLBase != "" {
		body = fmt.Sprintf("Reset your password: %s?token=%s\nThe link expires in 10 minutes.", resetURLBase, token)
	}
	if err := v.email.SendEmail(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// ConsumeResetToken 按明文令牌查找并消费，设置新密码
func (v *Verifier) ConsumeResetToken(ctx context.Context, token, newPassword string) (*model.User, error) {
	user, err := v.store.GetUserByResetTokenHash(ctx, HashResetToken(token), time.Now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidResetToken
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := v.store.ClearUserResetTokenAndSetPassword(ctx, user.ID, hash, time.Now()); err != nil {
		return nil, err
	}
	return user, nil
}

// HashResetToken 重置令牌哈希（存储侧只保存哈希）
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// lookupByIdentifier 按标识符形态解析用户
func lookupByIdentifier(ctx context.Context, store VerificationStore, identifier string) (*model.User, error) {
	if IsEmail(identifier) {
		return store.GetUserByEmail(ctx, identifier)
	}
	return store.GetUserByUsername(ctx, identifier)
}
