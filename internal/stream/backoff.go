package stream

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// ReconnectBackOff yields min(Max, Base*2^attempts) and counts one attempt per
// call. Reset is called when a connection opens.
type ReconnectBackOff struct {
	Base     time.Duration
	Max      time.Duration
	attempts int
}

var _ backoff.BackOff = (*ReconnectBackOff)(nil)

func NewReconnectBackOff() *ReconnectBackOff {
	return &ReconnectBackOff{Base: reconnectBaseDelay, Max: reconnectMaxDelay}
}

func (b *ReconnectBackOff) NextBackOff() time.Duration {
	delay := b.Max
	// Guard the shift against overflow.
	if b.attempts < 31 {
		if d := b.Base << b.attempts; d > 0 && d < b.Max {
			delay = d
		}
	}
	b.attempts++
	return delay
}

func (b *ReconnectBackOff) Reset() {
	b.attempts = 0
}

func (b *ReconnectBackOff) Attempts() int {
	return b.attempts
}
