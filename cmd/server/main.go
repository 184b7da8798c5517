package main

import (
	"context"
	"time"

	"pgprelay/config"
	"pgprelay/internal/cryptographic/pgp"
	"pgprelay/internal/protocol/relay"
	messageRepo "pgprelay/internal/repository/message"
	userRepo "pgprelay/internal/repository/user"
	redisSvc "pgprelay/internal/service/redis"
	"pgprelay/internal/service/server"
	"pgprelay/internal/utils/log"

	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		panic(err)
	}

	log.Init(cfg.Logger.Development, cfg.Logger.Level)
	defer log.Sync()

	mongoDBClient, err := initMongo(cfg.Mongo.URI)
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}

	db := mongoDBClient.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	relaySvc := relay.NewService(
		userRepo.NewUserRepo(db),
		messageRepo.NewMessageRepo(db),
		pgp.NewEngine(),
		cfg.Sweep.Grace,
	)

	go runSweeper(relaySvc, cfg.Sweep.Interval)

	s := server.NewHttpServer(relaySvc, server.NewRedisNotifier(redisSvc.NewRedis(rdb)))
	go func() {
		if err := s.Run(cfg.Server.Addr); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done
}

func runSweeper(svc *relay.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		n, err := svc.Sweep(context.Background())
		if err != nil {
			log.Error("sweep failed", zap.Error(err))
			continue
		}
		if n > 0 {
			log.Info("swept collected messages", zap.Int64("removed", n))
		}
	}
}

func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
