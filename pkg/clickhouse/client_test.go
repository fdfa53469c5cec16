package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		User:        "reader",
		Password:    "pw",
		Database:    "macropull",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
		MaxExecTime: 30 * time.Second,
	}

	dsn := buildDSN(cfg)
	if !strings.HasPrefix(dsn, "clickhouse://reader:pw@ch.local:9000/macropull?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	for _, want := range []string{"dial_timeout=5s", "read_timeout=10s", "max_execution_time=30"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn missing %q: %s", want, dsn)
		}
	}
	if strings.Contains(dsn, "async_insert") {
		t.Fatalf("async_insert should be absent: %s", dsn)
	}
}

func TestBuildDSNAsyncHTTP(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "macropull",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
	}

	dsn := buildDSN(cfg)
	if !strings.HasPrefix(dsn, "clickhouse+http://") {
		t.Fatalf("expected http scheme: %s", dsn)
	}
	for _, want := range []string{"async_insert=1", "wait_for_async_insert=1"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn missing %q: %s", want, dsn)
		}
	}
}
