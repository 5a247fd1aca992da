package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientDisablesRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), &Config{RedisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	// go-redis normalises -1 to 0 once the client is built.
	if opts.MaxRetries != 0 {
		t.Fatalf("MaxRetries = %d, want 0", opts.MaxRetries)
	}
	if opts.ReadTimeout != 500*time.Millisecond || opts.DialTimeout != 500*time.Millisecond {
		t.Fatalf("timeouts = %s/%s, want 500ms", opts.DialTimeout, opts.ReadTimeout)
	}
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), &Config{RedisURL: "redis://" + addr, RedisTimeout: 100 * time.Millisecond})
	if err == nil {
		t.Fatal("expected ping error for a closed server")
	}
}
