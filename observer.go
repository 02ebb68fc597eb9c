package birthday

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Observer receives events for record operations. It is called from Service
// methods after each operation completes; hit reports whether the cache
// answered without a store round-trip.
type Observer interface {
	OnRecordOp(ctx context.Context, op string, id uuid.UUID, hit bool, err error, dur time.Duration, backend Backend)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, id uuid.UUID, hit bool, err error, dur time.Duration, backend Backend)

// OnRecordOp implements Observer.
func (f ObserverFunc) OnRecordOp(ctx context.Context, op string, id uuid.UUID, hit bool, err error, dur time.Duration, backend Backend) {
	if f == nil {
		return
	}
	f(ctx, op, id, hit, err, dur, backend)
}
