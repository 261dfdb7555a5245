// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careerhub/internal/apiserver/server"
	"careerhub/internal/config"
	"careerhub/internal/mailer"
	"careerhub/internal/shared/objstore"
	"careerhub/internal/shared/storage/mongostore"
	"careerhub/pkg/logging"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 YAML 配置）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.Mongo.URI(), cfg.Mongo.Name)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Handler
	authCfg := server.AuthConfigFrom(cfg.Auth)
	h := server.NewHandler(store, authCfg)
	h.SetCORSOrigin(cfg.CORS.AllowedOrigin)

	// 投递通道：未配置时走 NoOpSender（只打日志）
	deliveryLog := logging.Default("mailer")
	if cfg.SMTP.Enabled() {
		smtp, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatalf("Failed to init SMTP sender: %v", err)
		}
		h.SetEmailSender(mailer.WithEmailLog(smtp, deliveryLog))
		log.Printf("SMTP delivery enabled via %s", cfg.SMTP.Host)
	}
	if cfg.SMS.Enabled() {
		sms, err := mailer.NewTwilioSender(cfg.SMS)
		if err != nil {
			log.Fatalf("Failed to init Twilio sender: %v", err)
		}
		h.SetSMSSender(mailer.WithSMSLog(sms, deliveryLog))
		log.Println("Twilio SMS delivery enabled")
	}

	// 对象存储（头像/简历），可选
	if cfg.MinIO.Enabled() {
		objects, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to init object storage: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := objects.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure bucket: %v", err)
		}
		cancel()
		h.SetObjectStore(objects)
		log.Printf("Object storage enabled via %s", cfg.MinIO.Endpoint)
	}

	// 启动通知扇出器
	h.Notifier().Start(2)
	defer h.Notifier().Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
