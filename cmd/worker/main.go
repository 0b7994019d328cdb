package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/email"
	"github.com/Domenick1991/busbooking/internal/kafka"
	"github.com/spf13/pflag"
)

func main() {
	cfgPath := pflag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	pflag.Parse()
	if *cfgPath == "" {
		*cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Kafka.NotificationsTopic == "" {
		log.Fatalf("kafka.notifications_topic is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = producer.CheckConnection(checkCtx)
	cancel()
	_ = producer.Close()
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(cfg.Mail, cfg.Auth.ResetURL)
	if !cfg.Mail.Enabled() {
		log.Printf("WARNING: mail.host not set, notifications are only logged")
	}

	log.Printf("[WORKER] consuming topic=%s group=%s", cfg.Kafka.NotificationsTopic, cfg.Kafka.GroupID)
	err = consumer.Consume(ctx, func(ctx context.Context, event kafka.Event) error {
		if err := sender.Send(ctx, event); err != nil {
			// Send failures are logged; the offset still advances.
			log.Printf("[WORKER] send failed type=%s user_id=%d err=%v", event.Type, event.UserID, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("consumer stopped: %v", err)
	}
	log.Printf("[WORKER] stopped")
}
