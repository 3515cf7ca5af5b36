package lock

import (
	"context"
	"testing"
	"time"
)

func TestProcessLockerExcludesConcurrentAcquire(t *testing.T) {
	l := NewProcessLocker()

	unlock, err := l.Acquire(context.Background(), "factory-twin")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "factory-twin"); err == nil {
		t.Fatal("expected second acquire on the same name to time out while the first is held")
	}

	unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	unlock2, err := l.Acquire(ctx2, "factory-twin")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	unlock2()
}

func TestProcessLockerIndependentNames(t *testing.T) {
	l := NewProcessLocker()

	unlockA, err := l.Acquire(context.Background(), "twin-a")
	if err != nil {
		t.Fatalf("acquire twin-a: %v", err)
	}
	defer unlockA()

	unlockB, err := l.Acquire(context.Background(), "twin-b")
	if err != nil {
		t.Fatalf("acquire twin-b should not block on twin-a: %v", err)
	}
	unlockB()
}

func TestFromEnvDefaultsToProcessLocker(t *testing.T) {
	t.Setenv("ETCD_ENDPOINTS", "")
	l, err := FromEnv("twin2multicloud")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if _, ok := l.(*processLocker); !ok {
		t.Fatalf("expected *processLocker when ETCD_ENDPOINTS is unset, got %T", l)
	}
}
