package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/KM101304/Design-Submission-Ghostwriter-Cockit/internal/cache"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rc, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

// --- Redis ---

func TestRedis_SetGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Ping(ctx))
	require.NoError(t, rc.Set(ctx, cache.SubmissionsKey("tenant-1"), []byte(`[]`), 10*time.Second))

	val, found, err := rc.Get(ctx, cache.SubmissionsKey("tenant-1"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`[]`), val)

	require.NoError(t, rc.Delete(ctx, cache.SubmissionsKey("tenant-1")))
	_, found, err = rc.Get(ctx, cache.SubmissionsKey("tenant-1"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "expiry:key", []byte("temp"), 1*time.Second))
	time.Sleep(1500 * time.Millisecond)

	_, found, err := rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_JobStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.SetJobStatus(ctx, "job-1", "running", 10*time.Second))

	status, found, err := rc.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "running", status)

	status, found, err = rc.GetJobStatus(ctx, "job-unknown")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", status)
}

func TestRedis_IncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("runs:" + uuid.NewString()[:8])

	for want := int64(1); want <= 3; want++ {
		val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}
}

// --- Memory ---

func TestMemory_SetGetDelete(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Ping(ctx))

	_, found, err := mc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	val, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	// Returned slices do not alias stored values.
	val[0] = 'x'
	again, _, _ := mc.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, found, _ = mc.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemory_TTLExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := mc.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_JobStatus(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.SetJobStatus(ctx, "job-9", "queued", time.Minute))
	status, found, err := mc.GetJobStatus(ctx, "job-9")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "queued", status)
}

func TestMemory_IncrWithExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		val, err := mc.IncrWithExpiry(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}

	_, err := mc.IncrWithExpiry(ctx, "fast", 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	val, err := mc.IncrWithExpiry(ctx, "fast", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

// --- Cache Key Builders ---

func TestJobStatusKey(t *testing.T) {
	assert.Equal(t, "cockpit:job:job-123", cache.JobStatusKey("job-123"))
}

func TestSubmissionsKey(t *testing.T) {
	assert.Equal(t, "cockpit:submissions:tenant-a", cache.SubmissionsKey("tenant-a"))
}

func TestAuditKey(t *testing.T) {
	assert.Equal(t, "cockpit:audit:tenant-a:sub-1", cache.AuditKey("tenant-a", "sub-1"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:runs", cache.RateLimitKey("runs"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		cache.JobStatusKey("x"):   true,
		cache.SubmissionsKey("x"): true,
		cache.AuditKey("x", "x"):  true,
		cache.RateLimitKey("x"):   true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}
