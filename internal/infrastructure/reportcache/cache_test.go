package reportcache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"

	"github.com/seamom/ogdrop/internal/infrastructure/dune"
)

func sampleReport() *dune.WalletReport {
	return &dune.WalletReport{
		Wallet: "0xabc",
		Summary: &dune.Summary{
			TradeCount: 3,
			TotalETH:   1.5,
			TotalUSD:   4500,
		},
		BuyerSeller: []map[string]any{},
		Collections: []dune.CollectionRow{},
		FetchedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKey_LowercasesAndTrims(t *testing.T) {
	got := Key(" 0xAbC123 ")
	want := "ogdrop:report:0xabc123"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestCache_RedisGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := &Cache{client: db, ttl: time.Minute}
	ctx := context.Background()

	key := Key("0xAbC")
	data, err := json.Marshal(sampleReport())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	t.Run("hit returns the stored report", func(t *testing.T) {
		mock.ExpectGet(key).SetVal(string(data))

		report, found := cache.Get(ctx, "0xAbC")
		if !found {
			t.Fatal("expected cache hit")
		}
		if report.Summary == nil || report.Summary.TradeCount != 3 {
			t.Errorf("unexpected report payload: %+v", report)
		}
		if report.Wallet != "0xabc" {
			t.Errorf("wallet = %q, want 0xabc", report.Wallet)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
	})

	t.Run("miss returns not found", func(t *testing.T) {
		mock.ExpectGet(key).RedisNil()

		if _, found := cache.Get(ctx, "0xAbC"); found {
			t.Error("expected cache miss")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
	})

	t.Run("backend error degrades to a miss", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(redis.TxFailedErr)

		if _, found := cache.Get(ctx, "0xAbC"); found {
			t.Error("expected miss when redis fails")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
	})

	t.Run("corrupt entry degrades to a miss", func(t *testing.T) {
		mock.ExpectGet(key).SetVal("{not json")

		if _, found := cache.Get(ctx, "0xAbC"); found {
			t.Error("expected miss on corrupt payload")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
	})

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 3 {
		t.Errorf("stats = %+v, want 1 hit / 3 misses", stats)
	}
	if stats.Local {
		t.Error("redis-backed cache should not report local mode")
	}
}

func TestCache_RedisPut(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := &Cache{client: db, ttl: time.Minute}
	ctx := context.Background()

	report := sampleReport()
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	t.Run("stores under the lowercased key with TTL", func(t *testing.T) {
		mock.ExpectSet(Key("0xAbC"), data, time.Minute).SetVal("OK")

		cache.Put(ctx, "0xAbC", report)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
		if stats := cache.Stats(); stats.Stores != 1 {
			t.Errorf("stores = %d, want 1", stats.Stores)
		}
	})

	t.Run("write failure is swallowed", func(t *testing.T) {
		mock.ExpectSet(Key("0xAbC"), data, time.Minute).SetErr(redis.TxFailedErr)

		cache.Put(ctx, "0xAbC", report)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("redis expectations not met: %v", err)
		}
		if stats := cache.Stats(); stats.Stores != 1 {
			t.Errorf("failed write must not bump stores, got %d", stats.Stores)
		}
	})

	t.Run("nil report is ignored", func(t *testing.T) {
		cache.Put(ctx, "0xAbC", nil)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("nil report must not touch redis: %v", err)
		}
	})
}

func TestCache_RedisInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := &Cache{client: db, ttl: time.Minute}

	mock.ExpectDel(Key("0xAbC")).SetVal(1)

	cache.Invalidate(context.Background(), "0xAbC")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}

func TestCache_MemoryRoundTrip(t *testing.T) {
	cache := NewMemory(time.Minute)
	ctx := context.Background()
	report := sampleReport()

	if _, found := cache.Get(ctx, "0xABC"); found {
		t.Fatal("expected miss on empty cache")
	}

	cache.Put(ctx, "0xABC", report)

	got, found := cache.Get(ctx, "0xabc") // address case must not matter
	if !found {
		t.Fatal("expected hit after put")
	}
	if got != report {
		t.Error("memory cache should return the stored report")
	}

	cache.Invalidate(ctx, "0xAbc")
	if _, found := cache.Get(ctx, "0xabc"); found {
		t.Error("expected miss after invalidate")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.Stores != 1 {
		t.Errorf("stats = %+v, want 1 hit / 2 misses / 1 store", stats)
	}
	if !stats.Local {
		t.Error("memory cache should report local mode")
	}
}

func TestCache_MemoryExpiry(t *testing.T) {
	cache := NewMemory(time.Millisecond)
	ctx := context.Background()

	cache.Put(ctx, "0xabc", sampleReport())
	time.Sleep(5 * time.Millisecond)

	if _, found := cache.Get(ctx, "0xabc"); found {
		t.Error("expected entry to expire")
	}
}

func TestOpen_FallsBackToMemory(t *testing.T) {
	t.Run("no address configured", func(t *testing.T) {
		cache := Open(Options{})
		defer cache.Close()

		if !cache.Stats().Local {
			t.Error("expected in-process cache without an address")
		}
		if cache.ttl != DefaultTTL {
			t.Errorf("ttl = %v, want default %v", cache.ttl, DefaultTTL)
		}
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cache := Open(Options{Addr: "127.0.0.1:1", TTL: time.Minute})
		defer cache.Close()

		if !cache.Stats().Local {
			t.Error("expected fallback to in-process cache")
		}
	})
}
