package param

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type paramHarness struct {
	proto     *Protocol
	values    map[string]float32
	requested bool
}

func newParamHarness(names ...string) *paramHarness {
	h := &paramHarness{values: map[string]float32{}}
	var reg Registry
	for _, name := range names {
		name := name
		reg = append(reg, Param{
			Name: name,
			Get:  func() float32 { return h.values[name] },
			Set:  func(v float32) { h.values[name] = v },
		})
	}
	h.proto = New(reg, func() { h.requested = true })
	return h
}

// tick mirrors one scheduler pass: advance the FSM, then emit the value
// if a transmission was requested.
func (h *paramHarness) tick() (sent []int) {
	h.proto.Advance()
	if h.requested {
		h.requested = false
		v, ok := h.proto.Value()
		if ok {
			sent = append(sent, int(v.Index))
		}
		h.proto.Sent()
	}
	return
}

func TestStreamVisitsAllWithFixedDelay(t *testing.T) {
	h := newParamHarness("MODE_AUTO", "MODE_HIL", "MODE_HILSENSE", "MODE_RCDISCON")
	h.proto.RequestStream()

	sentAt := map[int]int{}
	var order []int
	for tick := 1; tick <= 60; tick++ {
		for _, idx := range h.tick() {
			sentAt[idx] = tick
			order = append(order, idx)
		}
	}
	require.Equal(t, []int{0, 1, 2, 3}, order)
	for i := 1; i < 4; i++ {
		require.Equal(t, 10, sentAt[i]-sentAt[i-1])
	}
	require.Equal(t, Inactive, h.proto.State())
}

func TestStreamSingleFlight(t *testing.T) {
	h := newParamHarness("MODE_AUTO", "MODE_HIL")
	h.proto.RequestStream()
	h.tick()
	require.NotEqual(t, Inactive, h.proto.State())

	// Requests while the protocol is busy are no-ops.
	h.proto.RequestStream()
	h.proto.RequestSingle(1)
	h.proto.Set("MODE_HIL", 1)
	require.Zero(t, h.values["MODE_HIL"])

	var order []int
	for tick := 0; tick < 40; tick++ {
		order = append(order, h.tick()...)
	}
	require.Equal(t, []int{1}, order)
}

func TestRequestSingle(t *testing.T) {
	h := newParamHarness("MODE_AUTO", "MODE_HIL")
	h.values["MODE_HIL"] = 1
	h.proto.RequestSingle(1)

	sent := h.tick()
	require.Equal(t, []int{1}, sent)
	require.Equal(t, Inactive, h.proto.State())

	// Out-of-range requests are ignored.
	h.proto.RequestSingle(5)
	require.Equal(t, Inactive, h.proto.State())
	require.Empty(t, h.tick())
}

func TestSetMatchEchoesValue(t *testing.T) {
	h := newParamHarness("MODE_AUTO", "MODE_HIL")
	h.proto.Set("MODE_AUTO", 1)
	require.Equal(t, float32(1), h.values["MODE_AUTO"])

	sent := h.tick()
	require.Equal(t, []int{0}, sent)
	require.Equal(t, Inactive, h.proto.State())
}

func TestSetDuringStreamWritesWithoutEcho(t *testing.T) {
	h := newParamHarness("WHEEL_KP", "WP_RADIUS")
	h.proto.RequestStream()
	h.tick() // index 0 went out, stream mid-flight

	h.proto.Set("WP_RADIUS", 7)
	require.Equal(t, float32(7), h.values["WP_RADIUS"])

	// The stream itself carries the new value; no extra echo follows.
	var order []int
	for tick := 0; tick < 30; tick++ {
		order = append(order, h.tick()...)
	}
	require.Equal(t, []int{1}, order)
	require.Equal(t, Inactive, h.proto.State())
}

func TestSetUnknownNameIgnored(t *testing.T) {
	h := newParamHarness("MODE_AUTO")
	h.proto.Set("NO_SUCH", 7)
	require.Equal(t, Inactive, h.proto.State())
	require.Empty(t, h.tick())
	require.Empty(t, h.values)
}
