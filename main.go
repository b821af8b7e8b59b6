package main

import (
	"context"
	"github.com/go-redis/redis/v7"
	"github.com/labstack/gommon/log"
	"os"
	"os/signal"
	"signalroom.me/api"
	"signalroom.me/config"
	"signalroom.me/pkg/msgbroker"
	"signalroom.me/storage"
	"syscall"
	"time"
)

func main() {
	// APP configuration
	c := config.Get()
	log.SetLevel(c.Level())

	var (
		rdb   *redis.Client
		stats storage.Stats
		mb    msgbroker.MessageBroker
	)
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := rdb.Ping().Err(); err != nil {
			log.Fatal(err)
		}
		stats = storage.NewRedisStats(rdb)
		mb = msgbroker.NewRedisBroker(rdb)
	} else {
		log.Info("REDIS_ADDR is not set, counters are kept in memory")
		stats = storage.NewMemoryStats()
		mb = msgbroker.NewNopBroker()
	}

	// API
	a := api.New(c, storage.NewRegistry(), stats, mb)

	go func() {
		// Starting API
		if err := a.Start(); err != nil {
			log.Warn(err)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	// waiting for signals
	quit := <-signals
	log.Infof("signal %s received, stopping server...", quit)
	// Stopping server
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	if err := a.Close(ctx); err != nil {
		log.Error(err)
	}
	cancel()

	if err := mb.Close(); err != nil {
		log.Error(err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error(err)
		}
	}
}
