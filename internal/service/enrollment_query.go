package service

import (
	"context"

	"github.com/campuskit/enrollment-service/internal/repository"
	"github.com/campuskit/enrollment-service/pkg/logger"
)

// EnrollmentChecker интерфейс проверки записи на бэкенде
type EnrollmentChecker interface {
	CheckEnrollment(ctx context.Context, email, courseID string) (bool, error)
}

// EnrollmentQuery определяет, есть ли у слушателя активная запись на курс
type EnrollmentQuery struct {
	backend EnrollmentChecker
	cache   repository.EnrollmentCache
	log     *logger.Logger
}

// NewEnrollmentQuery создает новый сервис проверки записи
func NewEnrollmentQuery(backend EnrollmentChecker, cache repository.EnrollmentCache, log *logger.Logger) *EnrollmentQuery {
	return &EnrollmentQuery{
		backend: backend,
		cache:   cache,
		log:     log,
	}
}

// Check возвращает true, если слушатель уже записан на курс.
// Для анонимного слушателя запрос не выполняется и возвращается false.
// Ошибка бэкенда логируется и поглощается: проверка носит рекомендательный
// характер, настоящий дубликат отклонит бэкенд на этапе коммита.
func (q *EnrollmentQuery) Check(ctx context.Context, email, courseID string) bool {
	if email == "" {
		return false
	}

	if courses, found, err := q.cache.GetCourses(ctx, email); err == nil && found {
		for _, id := range courses {
			if id == courseID {
				q.log.Debug("Enrollment cache hit for %s, course %s", email, courseID)
				return true
			}
		}
	}

	enrolled, err := q.backend.CheckEnrollment(ctx, email, courseID)
	if err != nil {
		q.log.Warn("Enrollment check failed for %s, course %s: %v", email, courseID, err)
		return false
	}

	if enrolled {
		if err := q.cache.AddCourse(ctx, email, courseID); err != nil {
			q.log.Warn("Failed to cache enrollment for %s: %v", email, err)
		}
	}

	return enrolled
}
