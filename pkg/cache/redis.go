package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizgate/internal/models"

	"github.com/go-redis/redis/v8"
)

const defaultQuizTTL = 30 * time.Minute

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = defaultQuizTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func quizKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d", quizID)
}

// SetQuiz stores the full graph, answer key included. The cache is server-side
// only; projections for students are built after reading it back.
func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, c.ttl).Err()
}

func (c *RedisCache) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
