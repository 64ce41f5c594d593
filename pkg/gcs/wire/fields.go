package wire

import "math"

// fieldWriter appends fixed-layout little-endian fields to a payload.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) u8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *fieldWriter) u16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

func (w *fieldWriter) i16(v int16) {
	w.u16(uint16(v))
}

func (w *fieldWriter) u32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (w *fieldWriter) i32(v int32) {
	w.u32(uint32(v))
}

func (w *fieldWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}

// text writes a fixed-width field, truncating or zero-padding as needed.
func (w *fieldWriter) text(s string, width int) {
	if len(s) > width {
		s = s[:width]
	}
	w.buf = append(w.buf, s...)
	for i := len(s); i < width; i++ {
		w.buf = append(w.buf, 0)
	}
}

// fieldReader consumes fixed-layout little-endian fields. Reads past the
// end of the payload leave short set; callers check it once at the end.
type fieldReader struct {
	buf   []byte
	off   int
	short bool
}

func (r *fieldReader) u8() byte {
	if r.off+1 > len(r.buf) {
		r.short = true
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *fieldReader) u16() uint16 {
	if r.off+2 > len(r.buf) {
		r.short = true
		return 0
	}
	v := uint16(r.buf[r.off]) | uint16(r.buf[r.off+1])<<8
	r.off += 2
	return v
}

func (r *fieldReader) i16() int16 {
	return int16(r.u16())
}

func (r *fieldReader) u32() uint32 {
	if r.off+4 > len(r.buf) {
		r.short = true
		return 0
	}
	v := uint32(r.buf[r.off]) | uint32(r.buf[r.off+1])<<8 |
		uint32(r.buf[r.off+2])<<16 | uint32(r.buf[r.off+3])<<24
	r.off += 4
	return v
}

func (r *fieldReader) i32() int32 {
	return int32(r.u32())
}

func (r *fieldReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *fieldReader) text(width int) string {
	if r.off+width > len(r.buf) {
		r.short = true
		return ""
	}
	b := r.buf[r.off : r.off+width]
	r.off += width
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
