package manifest

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "catalog_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "catalog"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping manifest test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestRecordAndCurrent(t *testing.T) {
	client := skipIfNoPostgres(t)
	ctx := context.Background()
	rec := New(client)
	require.NoError(t, rec.Migrate(ctx))
	require.NoError(t, rec.Migrate(ctx))

	path := "/tmp/manifest-test-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".cidx"
	t.Cleanup(func() {
		client.DB.Exec(`DELETE FROM index_builds WHERE path = $1`, path)
	})

	_, err := rec.Current(ctx, path)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := rec.Record(ctx, Build{Path: path, Checksum: 0xdeadbeef, Source: "a.jsonl", Analyzer: "snowball", TFScheme: "raw", Documents: 3})
	require.NoError(t, err)
	second, err := rec.Record(ctx, Build{Path: path, Checksum: 7, Source: "b.jsonl", Analyzer: "light", TFScheme: "log", Documents: 5, Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	cur, err := rec.Current(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, second, cur.ID)
	assert.Equal(t, uint32(7), cur.Checksum)
	assert.Equal(t, "light", cur.Analyzer)
	assert.Equal(t, 1500*time.Millisecond, cur.Duration)
}
