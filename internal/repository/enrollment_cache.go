package repository

import (
	"context"
	"sync"

	"github.com/campuskit/enrollment-service/pkg/logger"
)

// EnrollmentCache интерфейс кэша представления "мои записи".
// Кэш носит рекомендательный характер: промах или ошибка никогда не блокируют
// поток, инвалидация после успешного оформления обязательна.
type EnrollmentCache interface {
	GetCourses(ctx context.Context, email string) ([]string, bool, error)
	AddCourse(ctx context.Context, email, courseID string) error
	Invalidate(ctx context.Context, email string) error
}

// InMemoryEnrollmentCache реализация кэша записей в памяти
type InMemoryEnrollmentCache struct {
	enrollments map[string][]string
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewInMemoryEnrollmentCache создает новый кэш записей в памяти
func NewInMemoryEnrollmentCache(log *logger.Logger) *InMemoryEnrollmentCache {
	return &InMemoryEnrollmentCache{
		enrollments: make(map[string][]string),
		log:         log,
	}
}

// GetCourses возвращает закэшированные курсы слушателя
func (c *InMemoryEnrollmentCache) GetCourses(ctx context.Context, email string) ([]string, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	courses, found := c.enrollments[email]
	if !found {
		return nil, false, nil
	}

	result := make([]string, len(courses))
	copy(result, courses)

	return result, true, nil
}

// AddCourse добавляет курс в кэш слушателя
func (c *InMemoryEnrollmentCache) AddCourse(ctx context.Context, email, courseID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, id := range c.enrollments[email] {
		if id == courseID {
			return nil
		}
	}

	c.enrollments[email] = append(c.enrollments[email], courseID)
	return nil
}

// Invalidate удаляет закэшированные записи слушателя
func (c *InMemoryEnrollmentCache) Invalidate(ctx context.Context, email string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.enrollments, email)
	c.log.Debug("Invalidated enrollment cache for %s", email)
	return nil
}
