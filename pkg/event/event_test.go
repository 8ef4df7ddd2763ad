package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFireRunsHandlersInOrder(t *testing.T) {
	b := New()
	var got []int
	b.Listen("order.created", func(context.Context, interface{}) error { got = append(got, 1); return nil })
	b.Listen("order.created", func(context.Context, interface{}) error { got = append(got, 2); return errors.New("x") })
	b.Listen("order.created", func(context.Context, interface{}) error { got = append(got, 3); return nil })
	b.Listen("order.updated", func(context.Context, interface{}) error { got = append(got, 99); return nil })

	err := b.Fire(context.Background(), "order.created", nil)
	if err == nil {
		t.Error("expected the handler error to surface")
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("handlers ran as %v", got)
	}
}

func TestFireAsync(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	wg.Add(2)
	h := func(_ context.Context, p interface{}) error {
		if p.(string) != "hi" {
			t.Errorf("payload = %v", p)
		}
		wg.Done()
		return nil
	}
	b.Listen("t", h)
	b.Listen("t", h)

	ctx, cancel := context.WithCancel(context.Background())
	b.FireAsync(ctx, "t", "hi")
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handlers did not run")
	}
}
