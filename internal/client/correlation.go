package client

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CorrelationHeader = "X-Correlation-Id"

// NewCorrelationID returns a random UUID, or a cid_<time>_<random> id when the
// system random source is unavailable.
func NewCorrelationID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return fallbackCorrelationID(time.Now())
}

func fallbackCorrelationID(now time.Time) string {
	var b strings.Builder
	b.WriteString("cid_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	b.WriteByte('_')
	for range 8 {
		b.WriteString(strconv.FormatUint(rand.Uint64N(36), 36))
	}
	return b.String()
}
