package wire

// Frame start byte.
const stx byte = 0xBD

// MaxPayloadLen bounds a frame payload.
const MaxPayloadLen = 64

// Frame is one framed unit on the channel.
type Frame struct {
	Seq     byte
	ID      MsgID
	Payload []byte
}

// Encode produces the on-wire bytes for a message with the given sequence
// number.
func Encode(seq byte, msg Message) []byte {
	payload := msg.MarshalPayload()
	b := make([]byte, 0, len(payload)+6)
	b = append(b, stx, byte(len(payload)), seq, byte(msg.ID()))
	b = append(b, payload...)
	ckA, ckB := fletcher(b[1:])
	return append(b, ckA, ckB)
}

// EncodedLen is the on-wire size of a message without encoding it.
func EncodedLen(msg Message) int {
	return len(msg.MarshalPayload()) + 6
}

func fletcher(p []byte) (a, b byte) {
	for _, c := range p {
		a += c
		b += a
	}
	return
}

type decodeState int

const (
	stateIdle decodeState = iota // waiting for STX
	stateLen
	stateSeq
	stateID
	statePayload
	stateCkA
	stateCkB
)

// Decoder assembles frames one byte at a time.
type Decoder struct {
	state   decodeState
	frame   Frame
	recvLen byte
	ckA     byte
	ckB     byte

	// Dropped counts bytes discarded during resynchronization plus frames
	// rejected by checksum.
	Dropped uint32
}

// Feed consumes one byte and returns a completed frame, or nil.
// Malformed input silently resynchronizes on the next start byte.
func (d *Decoder) Feed(b byte) *Frame {
	switch d.state {
	case stateIdle:
		if b == stx {
			d.state = stateLen
		} else {
			d.Dropped++
		}
	case stateLen:
		if b > MaxPayloadLen {
			d.resync()
			return nil
		}
		d.frame = Frame{}
		if b > 0 {
			d.frame.Payload = make([]byte, 0, b)
		}
		d.recvLen = b
		d.state = stateSeq
	case stateSeq:
		d.frame.Seq = b
		d.state = stateID
	case stateID:
		d.frame.ID = MsgID(b)
		if d.recvLen == 0 {
			d.state = stateCkA
		} else {
			d.state = statePayload
		}
	case statePayload:
		d.frame.Payload = append(d.frame.Payload, b)
		if byte(len(d.frame.Payload)) == d.recvLen {
			d.state = stateCkA
		}
	case stateCkA:
		d.ckA = b
		d.state = stateCkB
	case stateCkB:
		d.ckB = b
		d.state = stateIdle
		if a, bb := d.sum(); a == d.ckA && bb == d.ckB {
			f := d.frame
			d.frame = Frame{}
			return &f
		}
		d.Dropped++
	}
	return nil
}

// Reset discards any partially assembled frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.frame = Frame{}
}

func (d *Decoder) resync() {
	d.Dropped++
	d.state = stateIdle
	d.frame = Frame{}
}

func (d *Decoder) sum() (byte, byte) {
	b := make([]byte, 0, len(d.frame.Payload)+3)
	b = append(b, d.recvLen, d.frame.Seq, byte(d.frame.ID))
	b = append(b, d.frame.Payload...)
	return fletcher(b)
}
