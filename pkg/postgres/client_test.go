package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
)

// recorder is a minimal database/sql driver that logs what it is asked to do.
type recorder struct {
	mu     sync.Mutex
	events []string
	failOn string
}

func (r *recorder) log(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Open(string) (driver.Conn, error) { return &recConn{r: r}, nil }

type recConn struct{ r *recorder }

func (c *recConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *recConn) Close() error                        { return nil }
func (c *recConn) Begin() (driver.Tx, error) {
	c.r.log("begin")
	return &recTx{r: c.r}, nil
}

func (c *recConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if c.r.failOn != "" && strings.Contains(query, c.r.failOn) {
		c.r.log("exec failed")
		return nil, errors.New("syntax error")
	}
	c.r.log("exec")
	return driver.RowsAffected(0), nil
}

type recTx struct{ r *recorder }

func (t *recTx) Commit() error   { t.r.log("commit"); return nil }
func (t *recTx) Rollback() error { t.r.log("rollback"); return nil }

var registerOnce sync.Once
var shared = &recorder{}

func testClient(t *testing.T, failOn string) (*Client, *recorder) {
	t.Helper()
	registerOnce.Do(func() { sql.Register("catalog-recorder", shared) })
	shared.mu.Lock()
	shared.events = nil
	shared.failOn = failOn
	shared.mu.Unlock()

	db, err := sql.Open("catalog-recorder", "")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return &Client{DB: db}, shared
}

func TestMigrateCommits(t *testing.T) {
	c, rec := testClient(t, "")
	require.NoError(t, c.Migrate(context.Background(), "CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"))
	assert.Equal(t, []string{"begin", "exec", "exec", "commit"}, rec.Events())
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	c, rec := testClient(t, "broken")
	err := c.Migrate(context.Background(), "CREATE TABLE a (id INT)", "CREATE broken", "CREATE TABLE c (id INT)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration statement 2")
	assert.Equal(t, []string{"begin", "exec", "exec failed", "rollback"}, rec.Events())
}

func TestNewUnreachable(t *testing.T) {
	_, err := New(config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "catalog",
		Password: "catalog",
		Database: "catalog",
		SSLMode:  "disable",
	})
	assert.ErrorContains(t, err, "pinging postgres 127.0.0.1:1/catalog")
}
