// Package mission implements the ordered mission-list transfer protocol.
package mission

import (
	"github.com/golang/glog"

	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/vessel"
)

// State of the download side of the protocol.
type State int

// Download states. The transfer is pull-based: the peer requests the
// list, we announce a count, and the peer pulls items one by one.
const (
	Inactive State = iota
	ListStart
	ListCountdown
	ListResponse
	ListWaiting
)

// listTimeout is how many ticks a download may sit idle before the
// protocol silently reverts to Inactive so the peer can retry.
const listTimeout = 21

// Store is the onboard mission list as seen by the protocol.
type Store interface {
	Count() int
	Capacity() int
	Get(seq int) (vessel.Waypoint, bool)
	Append(w vessel.Waypoint) (int, bool)
	Clear()
	Current() int
	SetCurrent(seq int)
}

// Responder carries protocol replies back to the peer. Scheduled sends
// go through the transient queue; acknowledgments are immediate.
type Responder interface {
	ScheduleCount()
	ScheduleItem()
	Ack(result byte)
	RequestNext(seq uint16)
	AnnounceCurrent(seq uint16)
}

// Protocol manages both directions of the bounded mission-list exchange.
type Protocol struct {
	store      Store
	out        Responder
	autonomous func() bool

	state     State
	index     int
	countdown int

	// Upload session: how many items the peer announced. Zero when no
	// upload is in progress.
	expected int
}

// New creates the protocol. autonomous gates uploads: the list can never
// be rewritten while the vessel is driving itself.
func New(store Store, out Responder, autonomous func() bool) *Protocol {
	return &Protocol{store: store, out: out, autonomous: autonomous}
}

// State returns the download-side state.
func (p *Protocol) State() State { return p.state }

// Advance runs one tick of the download state machine.
func (p *Protocol) Advance() {
	switch p.state {
	case ListStart:
		p.out.ScheduleCount()
		p.index = 0
		p.countdown = 0
		p.state = ListCountdown
	case ListCountdown:
		p.countdown++
		if p.countdown >= listTimeout {
			glog.V(2).Info("mission download timed out")
			p.state = Inactive
		}
	case ListResponse:
		p.out.ScheduleItem()
		p.state = ListWaiting
	}
}

// OnRequestList starts a download. Accepted only from Inactive.
func (p *Protocol) OnRequestList() {
	if p.state == Inactive {
		p.state = ListStart
	}
}

// OnItemRequest advances the download when the peer asks for the item
// currently being served; any other sequence number is ignored.
func (p *Protocol) OnItemRequest(seq uint16) {
	if int(seq) == p.index {
		p.state = ListResponse
	}
}

// CountValue builds the count announcement.
func (p *Protocol) CountValue() wire.MissionCount {
	return wire.MissionCount{Count: uint16(p.store.Count())}
}

// CountSent notifies that the count announcement left the channel.
func (p *Protocol) CountSent() {
	p.countdown = 0
	p.state = ListCountdown
}

// ItemValue builds the item currently being served.
func (p *Protocol) ItemValue() (wire.MissionItem, bool) {
	w, ok := p.store.Get(p.index)
	if !ok {
		return wire.MissionItem{}, false
	}
	return wire.MissionItem{
		Seq:          uint16(p.index),
		Frame:        w.Frame,
		Action:       w.Action,
		Current:      p.index == p.store.Current(),
		Autocontinue: w.Autocontinue,
		Params:       w.Params,
		North:        w.North,
		East:         w.East,
		Down:         w.Down,
	}, true
}

// ItemSent notifies that the served item left the channel.
func (p *Protocol) ItemSent() {
	p.index++
	p.countdown = 0
	p.state = ListCountdown
}

// OnCount begins an upload session. Uploads are rejected outright while
// autonomous; the store is never touched in that case.
func (p *Protocol) OnCount(count int) {
	if p.autonomous() {
		p.out.Ack(wire.AckError)
		return
	}
	p.store.Clear()
	p.expected = count
	switch {
	case count == 0:
		p.expected = 0
		p.out.Ack(wire.AckError)
	case count > p.store.Capacity():
		p.expected = 0
		p.out.Ack(wire.AckNoSpace)
	default:
		p.out.RequestNext(0)
	}
}

// OnItem accepts one uploaded item. The sequence number must equal the
// store's current size; the item matching the announced total completes
// the session with an accepted acknowledgment.
func (p *Protocol) OnItem(item *wire.MissionItem) {
	if p.autonomous() {
		p.out.Ack(wire.AckError)
		return
	}
	// An item with no session open never touches the store.
	if p.expected == 0 {
		p.out.Ack(wire.AckError)
		return
	}
	if int(item.Seq) != p.store.Count() {
		p.out.Ack(wire.AckInvalidSequence)
		return
	}
	size, ok := p.store.Append(vessel.Waypoint{
		North:        item.North,
		East:         item.East,
		Down:         item.Down,
		Frame:        item.Frame,
		Action:       item.Action,
		Params:       item.Params,
		Autocontinue: item.Autocontinue,
	})
	if !ok {
		p.out.Ack(wire.AckNoSpace)
		return
	}
	if item.Current {
		p.store.SetCurrent(int(item.Seq))
	}
	if size == p.expected {
		p.expected = 0
		p.out.Ack(wire.AckAccepted)
	} else {
		p.out.RequestNext(item.Seq + 1)
	}
}

// OnClearAll erases the list and confirms.
func (p *Protocol) OnClearAll() {
	p.store.Clear()
	p.out.Ack(wire.AckAccepted)
}

// OnSetCurrent selects the active item and synchronously echoes the
// store's view of it back to the peer.
func (p *Protocol) OnSetCurrent(seq uint16) {
	p.store.SetCurrent(int(seq))
	if cur := p.store.Current(); cur >= 0 {
		p.out.AnnounceCurrent(uint16(cur))
	}
}
