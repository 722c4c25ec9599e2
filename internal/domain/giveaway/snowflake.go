package giveaway

import (
	"strconv"
	"sync"
	"time"
)

// Epoch is the reference point of entry ids (2015-01-01T00:00:00Z), the same
// epoch Discord snowflakes use.
const Epoch int64 = 1420070400000

const (
	timestampShift = 22
	sequenceMask   = 1<<timestampShift - 1
)

// IDGenerator issues entry ids of the form (ms since Epoch)<<22 | sequence.
// Ids are strictly increasing for a given generator.
type IDGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMS int64
	seq    int64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli() - Epoch
	if ms <= g.lastMS {
		// Same millisecond or clock went backwards: stay on the last
		// timestamp and borrow from the next one when the sequence is spent.
		ms = g.lastMS
		g.seq++
		if g.seq > sequenceMask {
			ms++
			g.seq = 0
		}
	} else {
		g.seq = 0
	}
	g.lastMS = ms
	return strconv.FormatInt(ms<<timestampShift|g.seq, 10)
}

var defaultGenerator = NewIDGenerator()

// NewEntryID returns an id from the process-wide generator.
func NewEntryID() string {
	return defaultGenerator.Next()
}

// IDTime extracts the creation time encoded in an entry id.
func IDTime(id string) (time.Time, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n>>timestampShift + Epoch).UTC(), true
}

// CompareIDs orders entry ids by their numeric value, which follows creation
// time. Non-numeric ids sort before numeric ones, lexically among themselves.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA != nil && errB != nil:
		return compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	default:
		return compare(na, nb)
	}
}

func compare[T int64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
