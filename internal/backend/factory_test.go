package backend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func quietFactory(buf *bytes.Buffer) *DefaultFactory {
	cfg := log.DefaultConfig()
	cfg.Output = buf
	return NewFactory(log.New(cfg)).(*DefaultFactory)
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := quietFactory(&bytes.Buffer{}).CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Fatalf("store = %T, want *memory.Store", res.Store)
		}
		if res.Publisher != nil {
			t.Fatal("publisher should be nil without AMQP_URL")
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		res, err := quietFactory(&bytes.Buffer{}).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
			t.Fatalf("store = %T, want *storage.SQLiteRepository", res.Store)
		}
		if err := res.Store.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		tests := []Config{
			{Type: "mongodb"},
			{Type: SQLiteBackend},
			{Type: PostgresBackend},
			{Type: MemoryBackend, AMQPURL: "amqp://localhost"},
		}
		for _, cfg := range tests {
			if _, err := quietFactory(&bytes.Buffer{}).CreateBackend(ctx, cfg); err == nil {
				t.Errorf("CreateBackend(%+v) expected error", cfg)
			}
		}
	})

	t.Run("unreachable broker keeps publisher nil", func(t *testing.T) {
		var buf bytes.Buffer
		f := quietFactory(&buf)
		f.dialAMQP = func(string, string, string) (*amqp.Client, error) {
			return nil, errors.New("dial AMQP: connection refused")
		}
		res, err := f.CreateBackend(ctx, Config{
			Type:           MemoryBackend,
			AMQPURL:        "amqp://localhost:5672/",
			AMQPExchange:   "fintrack",
			AMQPRoutingKey: "ledger_events",
		})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		// A typed-nil *amqp.Client would make this comparison false.
		if res.Publisher != nil {
			t.Fatalf("publisher = %#v, want nil interface", res.Publisher)
		}
		if !bytes.Contains(buf.Bytes(), []byte("continuing without ledger events")) {
			t.Errorf("expected warning in log output, got %q", buf.String())
		}
	})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	got, err := FromAppConfig(&config.Config{
		DataBackend:    "postgres",
		DatabaseURL:    "postgres://localhost/fintrack",
		AMQPURL:        "amqp://localhost",
		AMQPExchange:   "fintrack",
		AMQPRoutingKey: "ledger_events",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != PostgresBackend || got.DatabaseURL != "postgres://localhost/fintrack" || got.AMQPRoutingKey != "ledger_events" {
		t.Fatalf("unexpected backend config: %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "mongodb"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
