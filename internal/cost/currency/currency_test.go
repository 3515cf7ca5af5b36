package currency

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	rate  float64
	err   error
	calls int
}

func (s *stubSource) USDToEUR(ctx context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.rate, nil
}

func TestCachedClientFetchesOnceAndReusesLocalCache(t *testing.T) {
	src := &stubSource{rate: 0.92}
	c := NewCachedClient(src, nil, nil)

	for i := 0; i < 3; i++ {
		rate, err := c.USDToEUR(context.Background())
		if err != nil {
			t.Fatalf("USDToEUR: %v", err)
		}
		if rate != 0.92 {
			t.Errorf("rate = %v, want 0.92", rate)
		}
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
}

func TestCachedClientRefetchesAfterLocalExpiry(t *testing.T) {
	src := &stubSource{rate: 0.9}
	c := NewCachedClient(src, nil, nil)

	if _, err := c.USDToEUR(context.Background()); err != nil {
		t.Fatalf("USDToEUR: %v", err)
	}
	c.localAt = time.Now().Add(-25 * time.Hour)

	src.rate = 0.95
	rate, err := c.USDToEUR(context.Background())
	if err != nil {
		t.Fatalf("USDToEUR: %v", err)
	}
	if rate != 0.95 {
		t.Errorf("rate = %v, want 0.95 after refetch", rate)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2", src.calls)
	}
}

func TestCachedClientPropagatesSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("upstream unavailable")}
	c := NewCachedClient(src, nil, nil)

	if _, err := c.USDToEUR(context.Background()); err == nil {
		t.Fatal("expected error from source, got nil")
	}
}

func TestConvert(t *testing.T) {
	if got, want := Convert(100, 0.92), 92.0; got != want {
		t.Errorf("Convert() = %v, want %v", got, want)
	}
}
