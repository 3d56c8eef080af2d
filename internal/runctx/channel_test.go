package runctx

import (
	"context"
	"testing"

	"sunstock-dashboard/internal/logging"
)

func TestRecvAndSendOrDone(t *testing.T) {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	ch := make(chan int, 1)

	if !SendOrDone(context.Background(), "test", logger, ch, 7) {
		t.Fatalf("SendOrDone() = false")
	}
	if v, ok := RecvOrDone(context.Background(), "test", logger, ch); !ok || v != 7 {
		t.Fatalf("RecvOrDone() = %d, %v", v, ok)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := RecvOrDone(ctx, "test", logger, ch); ok {
		t.Fatalf("RecvOrDone() on canceled ctx = ok")
	}
	ch <- 1
	if SendOrDone(ctx, "test", logger, ch, 2) {
		t.Fatalf("SendOrDone() into full channel on canceled ctx = true")
	}
	if TrySend(ch, 3) {
		t.Fatalf("TrySend() into full channel = true")
	}
	<-ch
	if !TrySend(ch, 3) {
		t.Fatalf("TrySend() with room = false")
	}
}
