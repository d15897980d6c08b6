package database

import (
	"context"
	"fmt"
	"log"
	"time"

	config "github.com/mwangi254/farm_connect/configs"
	redis "github.com/redis/go-redis/v9"
)

// Redis is nil when REDIS_URL is not set; the app then runs in
// single-process mode (no cross-instance fan-out, no presence mirror).
var Redis *redis.Client

func ConnectRedis() {
	url := config.Config("REDIS_URL")
	if url == "" {
		log.Println("REDIS_URL not set, running without the redis backplane")
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("🔥 Failed to parse REDIS_URL: %v", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("🔥 Failed to connect to redis: %v", err)
	}

	Redis = client
	fmt.Println("✅ Redis connected successfully")
}
