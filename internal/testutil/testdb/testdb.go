//go:build testutil

// Package testdb starts throwaway Postgres and Redis containers for
// integration tests. Run them with -tags testutil.
package testdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"rollcall/internal/store"
)

type DBHandle struct {
	DB     *sql.DB
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start runs Postgres and applies the embedded migrations.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("attendance"),
		postgres.WithUsername("attendance"),
		postgres.WithPassword("attendance"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}
	db, err := store.NewDB(ctx, uri)
	if err != nil {
		_ = db.Close()
		return fail(err)
	}
	if err := store.Migrate(ctx, db.Client); err != nil {
		_ = db.Close()
		return fail(err)
	}

	return &DBHandle{
		DB:     db.Client,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

type RedisHandle struct {
	Client *redis.Client
	stop   func(context.Context) error
}

func (h *RedisHandle) Close() {
	if h.Client != nil {
		_ = h.Client.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
}

// StartRedis runs a bare Redis server.
func StartRedis(ctx context.Context) (*RedisHandle, error) {
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}
	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}
	client := store.NewRedis(addr).Client
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = c.Terminate(ctx)
		return nil, err
	}
	return &RedisHandle{Client: client, stop: c.Terminate}, nil
}
