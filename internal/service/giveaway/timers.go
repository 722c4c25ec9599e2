package giveaway

import (
	"sync"
	"time"
)

// MaxTimerDelay is the longest single delay the registry arms. Longer
// waits are chained.
const MaxTimerDelay = (1<<31 - 1) * time.Millisecond

// scheduledEnd is one registry slot. The timer is replaced on every hop
// while the slot identity stays the same.
type scheduledEnd struct {
	giveawayID string
	dueAt      time.Time
	timer      *time.Timer
	hops       int
}

// timerRegistry fires a callback once per giveaway at or after its due time.
type timerRegistry struct {
	mu       sync.Mutex
	maxDelay time.Duration
	now      func() time.Time
	slots    map[string]*scheduledEnd
}

func newTimerRegistry(maxDelay time.Duration) *timerRegistry {
	if maxDelay <= 0 || maxDelay > MaxTimerDelay {
		maxDelay = MaxTimerDelay
	}
	return &timerRegistry{
		maxDelay: maxDelay,
		now:      time.Now,
		slots:    make(map[string]*scheduledEnd),
	}
}

// Schedule arms fire for giveawayID at dueAt, replacing any pending timer.
// It returns false without arming when dueAt is not in the future; the
// caller handles the overdue giveaway itself.
func (r *timerRegistry) Schedule(giveawayID string, dueAt time.Time, fire func(giveawayID string)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked(giveawayID)
	if !dueAt.After(r.now()) {
		return false
	}
	slot := &scheduledEnd{giveawayID: giveawayID, dueAt: dueAt}
	r.slots[giveawayID] = slot
	r.armLocked(slot, fire)
	return true
}

func (r *timerRegistry) armLocked(slot *scheduledEnd, fire func(string)) {
	delay := slot.dueAt.Sub(r.now())
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	slot.timer = time.AfterFunc(delay, func() { r.elapsed(slot, fire) })
}

func (r *timerRegistry) elapsed(slot *scheduledEnd, fire func(string)) {
	r.mu.Lock()
	if r.slots[slot.giveawayID] != slot {
		// Cancelled or rescheduled after this timer was armed.
		r.mu.Unlock()
		return
	}
	if slot.dueAt.After(r.now()) {
		slot.hops++
		r.armLocked(slot, fire)
		r.mu.Unlock()
		return
	}
	delete(r.slots, slot.giveawayID)
	r.mu.Unlock()

	fire(slot.giveawayID)
}

// Cancel stops the pending timer of giveawayID. It reports whether one existed.
func (r *timerRegistry) Cancel(giveawayID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelLocked(giveawayID)
}

func (r *timerRegistry) cancelLocked(giveawayID string) bool {
	slot, ok := r.slots[giveawayID]
	if !ok {
		return false
	}
	slot.timer.Stop()
	delete(r.slots, giveawayID)
	return true
}

// CancelAll stops every pending timer and returns how many there were.
func (r *timerRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.slots)
	for id := range r.slots {
		r.cancelLocked(id)
	}
	return n
}

// Pending returns the due time of giveawayID's timer.
func (r *timerRegistry) Pending(giveawayID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[giveawayID]
	if !ok {
		return time.Time{}, false
	}
	return slot.dueAt, true
}

func (r *timerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// hops returns how many times giveawayID's timer has been re-armed.
func (r *timerRegistry) hops(giveawayID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[giveawayID]; ok {
		return slot.hops
	}
	return 0
}
