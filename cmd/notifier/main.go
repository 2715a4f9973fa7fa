package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/database"
	"github.com/ucmarket/backend/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Telegram.Enabled() {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
	}

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient == nil {
		log.Fatal("Redis is required to drain the notification queue")
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := notify.NewWorker(redisClient, notify.DefaultQueue, notify.NewTelegram(cfg.Telegram), cfg.Telegram.Timeout)
	if err := worker.Run(ctx); err != nil {
		log.Fatalf("Notification worker stopped: %v", err)
	}
	log.Println("Notification worker stopped")
}
