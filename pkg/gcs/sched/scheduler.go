// Package sched tracks which outbound messages are due each tick.
package sched

import (
	"github.com/seaslug/helm.go/pkg/gcs/wire"
)

// DefaultBudget is the default per-tick byte budget, sized for a 115200
// baud channel at the 100Hz tick rate.
const DefaultBudget = 115

// usageRing is the capacity of the rolling usage window, in ticks.
const usageRing = 100

type entry struct {
	id     wire.MsgID
	period uint32
	due    uint32
}

// Scheduler owns the periodic cadence table and the transient queue.
// Each Tick it produces the ordered ids due for transmission, deferring
// whatever would overrun the per-tick byte budget to the next tick.
// It performs no length validation; sizes come from SetSize and Record.
type Scheduler struct {
	// Budget is the byte budget per tick. Zero means DefaultBudget.
	Budget int

	entries    []entry
	transients []wire.MsgID
	deferred   []wire.MsgID
	sizes      map[wire.MsgID]int

	tick   uint32
	window [usageRing]int
}

// New creates a Scheduler with the default budget.
func New() *Scheduler {
	return &Scheduler{Budget: DefaultBudget, sizes: make(map[wire.MsgID]int)}
}

// Register adds or overwrites a periodic entry with a fixed cadence in
// ticks. The first transmission is due period ticks from now.
func (s *Scheduler) Register(id wire.MsgID, period uint32) {
	if period == 0 {
		period = 1
	}
	for i := range s.entries {
		if s.entries[i].id == id {
			s.entries[i].period = period
			s.entries[i].due = s.tick + period
			return
		}
	}
	s.entries = append(s.entries, entry{id: id, period: period, due: s.tick + period})
}

// Transient enqueues a one-shot transmission independent of any cadence.
func (s *Scheduler) Transient(id wire.MsgID) {
	s.transients = append(s.transients, id)
}

// SetSize records the expected on-wire size of a message id, used only
// for budgeting due messages within a tick.
func (s *Scheduler) SetSize(id wire.MsgID, n int) {
	if s.sizes == nil {
		s.sizes = make(map[wire.MsgID]int)
	}
	s.sizes[id] = n
}

// Tick advances time by one tick and returns, in order, the message ids
// due for transmission: deferrals from the previous tick, periodic
// entries whose due tick arrived, then queued transients in FIFO order.
func (s *Scheduler) Tick() []wire.MsgID {
	s.tick++
	s.window[s.tick%usageRing] = 0

	due := s.deferred
	s.deferred = nil
	for i := range s.entries {
		if s.entries[i].due == s.tick {
			due = append(due, s.entries[i].id)
			s.entries[i].due += s.entries[i].period
		}
	}
	due = append(due, s.transients...)
	s.transients = nil

	budget := s.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	var used int
	for i, id := range due {
		used += s.sizes[id]
		if used > budget && i > 0 {
			// Everything from here on waits for the next tick.
			s.deferred = append(s.deferred, due[i:]...)
			return due[:i]
		}
	}
	return due
}

// Record accounts bytes actually transmitted during the current tick.
func (s *Scheduler) Record(n int) {
	s.window[s.tick%usageRing] += n
}

// Usage reports the percentage of the byte budget consumed over the last
// window ticks. The window is capped at the rolling ring size.
func (s *Scheduler) Usage(window int) int {
	if window <= 0 || window > usageRing {
		window = usageRing
	}
	budget := s.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	var sum int
	for i := 0; i < window; i++ {
		sum += s.window[(s.tick-uint32(i))%usageRing]
	}
	return sum * 100 / (budget * window)
}
