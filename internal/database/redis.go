package database

import (
	"context"

	"github.com/openwork-hackathon/team-clawctor/config"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis dials the job queue server and checks it answers a ping.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisFullAddr(),
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
