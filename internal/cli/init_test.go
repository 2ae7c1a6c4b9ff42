package cli

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestShutdownContextStop(t *testing.T) {
	ctx, stop := ShutdownContext(slog.New(slog.NewTextHandler(io.Discard, nil)))
	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before stop")
	default:
	}

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after stop")
	}
}
