package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campuskit/enrollment-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryEnv(b *fakeBackend) (*EnrollmentQuery, *repository.InMemoryEnrollmentCache) {
	log := testLogger()
	cache := repository.NewInMemoryEnrollmentCache(log)
	return NewEnrollmentQuery(b, cache, log), cache
}

func TestCheckAnonymousSkipsBackend(t *testing.T) {
	b := &fakeBackend{enrolled: true}
	q, _ := newQueryEnv(b)

	assert.False(t, q.Check(context.Background(), "", "course-1"))
	assert.Empty(t, b.callList())
}

func TestCheckCacheHitSkipsBackend(t *testing.T) {
	b := &fakeBackend{}
	q, cache := newQueryEnv(b)
	require.NoError(t, cache.AddCourse(context.Background(), "asel@example.com", "course-1"))

	assert.True(t, q.Check(context.Background(), "asel@example.com", "course-1"))
	assert.Empty(t, b.callList())
}

func TestCheckPositiveResultIsCached(t *testing.T) {
	b := &fakeBackend{enrolled: true}
	q, _ := newQueryEnv(b)

	assert.True(t, q.Check(context.Background(), "asel@example.com", "course-1"))
	assert.True(t, q.Check(context.Background(), "asel@example.com", "course-1"))

	// Второй вызов обслужен из кэша
	assert.Equal(t, 1, countCalls(b.callList(), "CheckEnrollment"))
}

func TestCheckBackendErrorFailsOpen(t *testing.T) {
	b := &fakeBackend{checkErr: errors.New("backend down")}
	q, _ := newQueryEnv(b)

	// Сбой проверки не блокирует оформление: вернется false
	assert.False(t, q.Check(context.Background(), "asel@example.com", "course-1"))
}

func TestCheckNegativeResultIsNotCached(t *testing.T) {
	b := &fakeBackend{}
	q, cache := newQueryEnv(b)

	assert.False(t, q.Check(context.Background(), "asel@example.com", "course-1"))

	_, found, err := cache.GetCourses(context.Background(), "asel@example.com")
	require.NoError(t, err)
	assert.False(t, found)
}
