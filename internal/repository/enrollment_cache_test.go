package repository

import (
	"context"
	"io"
	"testing"

	"github.com/campuskit/enrollment-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func TestInMemoryCacheAddAndGet(t *testing.T) {
	cache := NewInMemoryEnrollmentCache(testLogger())
	ctx := context.Background()

	_, found, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-1"))
	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-2"))

	courses, found, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"course-1", "course-2"}, courses)
}

func TestInMemoryCacheAddIsIdempotent(t *testing.T) {
	cache := NewInMemoryEnrollmentCache(testLogger())
	ctx := context.Background()

	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-1"))
	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-1"))

	courses, _, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestInMemoryCacheInvalidate(t *testing.T) {
	cache := NewInMemoryEnrollmentCache(testLogger())
	ctx := context.Background()

	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-1"))
	require.NoError(t, cache.AddCourse(ctx, "bolat@example.com", "course-2"))

	require.NoError(t, cache.Invalidate(ctx, "asel@example.com"))

	_, found, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	// Записи других слушателей не затрагиваются
	_, found, err = cache.GetCourses(ctx, "bolat@example.com")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestInMemoryCacheReturnsCopy(t *testing.T) {
	cache := NewInMemoryEnrollmentCache(testLogger())
	ctx := context.Background()

	require.NoError(t, cache.AddCourse(ctx, "asel@example.com", "course-1"))

	courses, _, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	courses[0] = "mutated"

	fresh, _, err := cache.GetCourses(ctx, "asel@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"course-1"}, fresh)
}
