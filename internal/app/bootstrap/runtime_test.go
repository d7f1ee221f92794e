package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/gymguard-dashboard/internal/config"
	"github.com/wolfman30/gymguard-dashboard/internal/watchlist"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	t.Cleanup(func() { _ = client.Close() })

	checks := HealthChecks(nil, client)
	if _, ok := checks["postgres"]; ok {
		t.Fatalf("expected no postgres check without a pool")
	}
	if err := checks["redis"](context.Background()); err != nil {
		t.Fatalf("redis check: %v", err)
	}
}

func TestBuildRedisClientUnreachableReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if client := BuildRedisClient(ctx, &appconfig.Config{RedisAddr: addr}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}

func TestBuildGuard(t *testing.T) {
	if guard := BuildGuard(nil, &appconfig.Config{}); guard != nil {
		t.Fatalf("expected nil guard without redis")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	guard := BuildGuard(client, &appconfig.Config{InFlightTTL: time.Minute})
	if _, ok := guard.(*watchlist.RedisGuard); !ok {
		t.Fatalf("expected redis guard, got %T", guard)
	}
	release, err := guard.Acquire(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := guard.Acquire(context.Background(), "user-1"); err != watchlist.ErrActionInFlight {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	release()
}

func TestConnectPostgresRequiresURL(t *testing.T) {
	if _, err := ConnectPostgres(context.Background(), &appconfig.Config{}); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}
