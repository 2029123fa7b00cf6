package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/acquire/pkg/acquire"
)

func TestRecordRunRequiresRunID(t *testing.T) {
	l := &Ledger{logger: zerolog.Nop()}
	err := l.RecordRun(context.Background(), acquire.RunSummary{})
	if !errors.Is(err, ErrNoRunID) {
		t.Errorf("expected ErrNoRunID, got %v", err)
	}
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Open(ctx, "postgres://acquire@127.0.0.1:1/acquire?sslmode=disable&connect_timeout=1", zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}
