package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestStatus(t *testing.T) {
	if got := NewService(nil).Status(context.Background()); !got.OK || got.Database != "" {
		t.Fatalf("unexpected status without db: %+v", got)
	}
	if got := NewService(fakePinger{}).Status(context.Background()); !got.OK || got.Database != "ok" {
		t.Fatalf("unexpected status with healthy db: %+v", got)
	}
	if got := NewService(fakePinger{err: errors.New("down")}).Status(context.Background()); got.OK || got.Database != "unreachable" {
		t.Fatalf("unexpected status with failing db: %+v", got)
	}
}
