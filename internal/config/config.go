// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（密钥、提供商凭据）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 每个组件在启动时显式接收自己的配置段，不在调用路径深处读环境变量。
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server Server      `yaml:"server"`
	Mongo  MongoConfig `yaml:"mongo"`
	Auth   AuthConfig  `yaml:"auth"`
	SMTP   SMTPConfig  `yaml:"smtp"`
	SMS    SMSConfig   `yaml:"sms"`
	MinIO  MinIOConfig `yaml:"minio"`
	CORS   CORSConfig  `yaml:"cors"`
}

// Server HTTP 服务配置
type Server struct {
	Port string `yaml:"port"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// URI 构建连接字符串
func (m MongoConfig) URI() string {
	return fmt.Sprintf("mongodb://%s:%d", m.Host, m.Port)
}

// AuthConfig 认证配置
// JWTSecret 只从 JWT_SECRET 环境变量读取，不落 YAML
type AuthConfig struct {
	JWTSecret         string        `yaml:"-"`
	UserTokenTTL      time.Duration `yaml:"-"`
	RecruiterTokenTTL time.Duration `yaml:"-"`
	CookieSecure      bool          `yaml:"-"`
}

// UnmarshalYAML 解析 "24h" 形式的时长字符串
func (a *AuthConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		UserTokenTTL      string `yaml:"user_token_ttl"`
		RecruiterTokenTTL string `yaml:"recruiter_token_ttl"`
		CookieSecure      bool   `yaml:"cookie_secure"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.UserTokenTTL != "" {
		d, err := time.ParseDuration(raw.UserTokenTTL)
		if err != nil {
			return fmt.Errorf("user_token_ttl: %w", err)
		}
		a.UserTokenTTL = d
	}
	if raw.RecruiterTokenTTL != "" {
		d, err := time.ParseDuration(raw.RecruiterTokenTTL)
		if err != nil {
			return fmt.Errorf("recruiter_token_ttl: %w", err)
		}
		a.RecruiterTokenTTL = d
	}
	a.CookieSecure = raw.CookieSecure
	return nil
}

// SMTPConfig 邮件投递配置
// Password 从 SMTP_PASSWORD 环境变量读取
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	From     string `yaml:"from"`
	Password string `yaml:"-"`
}

// Enabled 是否启用邮件投递
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// SMSConfig 短信投递配置（Twilio）
// AuthToken 从 TWILIO_AUTH_TOKEN 环境变量读取
type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	FromNumber string `yaml:"from_number"`
	AuthToken  string `yaml:"-"`
}

// Enabled 是否启用短信投递
func (c SMSConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

// MinIOConfig 对象存储配置
// SecretKey 从 MINIO_SECRET_KEY 环境变量读取
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	SecretKey string `yaml:"-"`
}

// Enabled 是否启用对象存储
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env    Environment
	Server Server
	Mongo  MongoConfig
	Auth   AuthConfig
	SMTP   SMTPConfig
	SMS    SMSConfig
	MinIO  MinIOConfig
	CORS   CORSConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 注入环境变量中的敏感信息
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:    env,
		Server: yamlCfg.Server,
		Mongo:  yamlCfg.Mongo,
		Auth:   yamlCfg.Auth,
		SMTP:   yamlCfg.SMTP,
		SMS:    yamlCfg.SMS,
		MinIO:  yamlCfg.MinIO,
		CORS:   yamlCfg.CORS,
	}

	// 敏感信息只从环境变量进入
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMS.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.MinIO.SecretKey = os.Getenv("MINIO_SECRET_KEY")

	cfg.validate()

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server: Server{Port: "8080"},
		Mongo:  MongoConfig{Host: "localhost", Port: 27017, Name: "careerhub"},
		Auth: AuthConfig{
			UserTokenTTL:      24 * time.Hour,
			RecruiterTokenTTL: 30 * 24 * time.Hour,
		},
		MinIO: MinIOConfig{Bucket: "careerhub"},
		CORS:  CORSConfig{AllowedOrigin: "http://localhost:3000"},
	}

	// 2. 加载 common.yaml（公共配置）
	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// validate 填充缺省值
func (c *Config) validate() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Mongo.Name == "" {
		c.Mongo.Name = "careerhub"
	}
	if c.Auth.UserTokenTTL == 0 {
		c.Auth.UserTokenTTL = 24 * time.Hour
	}
	if c.Auth.RecruiterTokenTTL == 0 {
		c.Auth.RecruiterTokenTTL = 30 * 24 * time.Hour
	}
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏敏感信息）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, Port: %s, SMTP: %s, MinIO: %s}",
		c.Env, maskHost(c.Mongo.URI()), c.Mongo.Name, c.Server.Port, c.SMTP.Host, c.MinIO.Endpoint)
}

// maskHost 隐藏 URI 中的凭据
func maskHost(uri string) string {
	re := regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
	return re.ReplaceAllString(uri, "${1}***${3}")
}
