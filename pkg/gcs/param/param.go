// Package param implements the configuration-parameter exchange protocol.
package param

import (
	"github.com/seaslug/helm.go/pkg/gcs/wire"
)

// State of the parameter protocol.
type State int

// Protocol states. Exactly one is active at a time; every request issued
// while the protocol is not Inactive is a no-op.
const (
	Inactive State = iota
	SingleStart
	SingleWait
	StreamStart
	StreamParam
	StreamWait
	StreamDelay
)

// streamSendDelay is the fixed number of ticks between consecutive sends
// of a parameter stream, pacing the stream below the channel budget.
const streamSendDelay = 10

// Param is one entry of the fixed parameter registry.
type Param struct {
	Name string
	Get  func() float32
	Set  func(float32)
}

// Registry is the fixed, ordered set of parameters exposed to the peer.
type Registry []Param

func (r Registry) index(name string) int {
	for i := range r {
		if r[i].Name == name {
			return i
		}
	}
	return -1
}

// Protocol streams or singly transmits named configuration values.
// The request callback schedules one transient ParamValue transmission;
// the owner reports back via Sent once the value actually left.
type Protocol struct {
	registry Registry
	request  func()

	state State
	index int
	delay int
}

// New creates the protocol around a fixed registry.
func New(registry Registry, request func()) *Protocol {
	return &Protocol{registry: registry, request: request}
}

// State returns the current protocol state.
func (p *Protocol) State() State { return p.state }

// Count returns the size of the registry.
func (p *Protocol) Count() int { return len(p.registry) }

// RequestSingle starts a one-shot transmission of the parameter at index.
// Accepted only from Inactive; out-of-range indices are ignored.
func (p *Protocol) RequestSingle(index int) {
	if p.state != Inactive || index < 0 || index >= len(p.registry) {
		return
	}
	p.index = index
	p.state = SingleStart
}

// RequestStream starts a transmission of the whole registry.
// Accepted only from Inactive.
func (p *Protocol) RequestStream() {
	if p.state != Inactive {
		return
	}
	p.state = StreamStart
}

// Set writes a named value into the backing store and requests a single
// transmission of the new value as acknowledgment. An unknown name is
// silently ignored; no negative acknowledgment is defined. The write
// always lands; only the echo is single-flight, since an in-progress
// stream reads the registry at transmit time and carries the new value.
func (p *Protocol) Set(name string, value float32) {
	i := p.registry.index(name)
	if i < 0 {
		return
	}
	p.registry[i].Set(value)
	if p.state != Inactive {
		return
	}
	p.index = i
	p.state = SingleStart
}

// Advance runs one tick of the transmit-side state machine.
func (p *Protocol) Advance() {
	switch p.state {
	case SingleStart:
		p.request()
		p.state = SingleWait
	case StreamStart:
		p.index = 0
		p.state = StreamParam
		p.advanceStream()
	case StreamParam:
		p.advanceStream()
	case StreamDelay:
		p.delay++
		if p.delay >= streamSendDelay {
			p.delay = 0
			p.state = StreamParam
			p.advanceStream()
		}
	}
}

func (p *Protocol) advanceStream() {
	if p.index < len(p.registry) {
		p.request()
		p.state = StreamWait
	} else {
		p.state = Inactive
	}
}

// Value builds the ParamValue message for the parameter currently being
// served. It reports false when the protocol has nothing to transmit.
func (p *Protocol) Value() (wire.ParamValue, bool) {
	if p.index < 0 || p.index >= len(p.registry) {
		return wire.ParamValue{}, false
	}
	e := &p.registry[p.index]
	return wire.ParamValue{
		Name:  e.Name,
		Value: e.Get(),
		Index: uint16(p.index),
		Count: uint16(len(p.registry)),
	}, true
}

// Sent notifies the protocol that the requested ParamValue transmission
// actually happened this tick.
func (p *Protocol) Sent() {
	switch p.state {
	case StreamWait:
		p.index++
		p.delay = 0
		p.state = StreamDelay
	case SingleWait:
		p.state = Inactive
	}
}
