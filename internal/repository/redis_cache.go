package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей кэша записей
	enrollmentsKeyPrefix = "enrollments:"

	// TTL для кэша по умолчанию
	defaultCacheTTL = 15 * time.Minute
)

// RedisEnrollmentCache реализует кэш записей на курсах с использованием Redis
type RedisEnrollmentCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisEnrollmentCache создает новый Redis-кэш записей
func NewRedisEnrollmentCache(redisAddr, redisPassword string, redisDB int, ttl time.Duration, log *logger.Logger) (*RedisEnrollmentCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	log.Info("Connected to Redis at %s", redisAddr)
	return &RedisEnrollmentCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (c *RedisEnrollmentCache) Close() error {
	return c.client.Close()
}

// GetCourses возвращает закэшированные курсы слушателя
func (c *RedisEnrollmentCache) GetCourses(ctx context.Context, email string) ([]string, bool, error) {
	key := enrollmentsKeyPrefix + email

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		c.log.Error("Error getting enrollments from Redis for %s: %v", email, err)
		return nil, false, fmt.Errorf("failed to get enrollments from cache: %w", err)
	}

	var courses []string
	if err := json.Unmarshal(data, &courses); err != nil {
		c.log.Error("Failed to unmarshal cached enrollments for %s: %v", email, err)
		return nil, false, fmt.Errorf("failed to unmarshal enrollments: %w", err)
	}

	return courses, true, nil
}

// AddCourse добавляет курс в кэш слушателя
func (c *RedisEnrollmentCache) AddCourse(ctx context.Context, email, courseID string) error {
	courses, found, err := c.GetCourses(ctx, email)
	if err != nil {
		return err
	}

	if found {
		for _, id := range courses {
			if id == courseID {
				return nil
			}
		}
	}

	courses = append(courses, courseID)

	data, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollments: %w", err)
	}

	key := enrollmentsKeyPrefix + email
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("Failed to cache enrollments for %s: %v", email, err)
		return fmt.Errorf("failed to cache enrollments: %w", err)
	}

	c.log.Debug("Cached enrollment %s for %s", courseID, email)
	return nil
}

// Invalidate удаляет закэшированные записи слушателя
func (c *RedisEnrollmentCache) Invalidate(ctx context.Context, email string) error {
	key := enrollmentsKeyPrefix + email

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error("Failed to invalidate enrollment cache for %s: %v", email, err)
		return fmt.Errorf("failed to invalidate enrollment cache: %w", err)
	}

	c.log.Debug("Invalidated enrollment cache for %s", email)
	return nil
}
