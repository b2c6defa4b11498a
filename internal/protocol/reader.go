package protocol

import "io"

const readChunkSize = 4096

// Reader decodes a stream of packets from an io.Reader.
// It keeps any partial tail between reads, so frames split across TCP
// segments and several frames in one segment are both handled.
type Reader struct {
	src   io.Reader
	buf   []byte
	chunk []byte
}

// NewReader creates a Reader on top of src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:   src,
		buf:   make([]byte, 0, readChunkSize),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next complete packet.
// Read errors from the underlying reader are returned as-is (io.EOF,
// deadline errors) so callers can classify them.
func (r *Reader) Next() (Packet, error) {
	for {
		p, n, err := Decode(r.buf)
		if err != nil {
			return Packet{}, err
		}
		if n > 0 {
			r.consume(n)
			return p, nil
		}

		m, rerr := r.src.Read(r.chunk)
		r.buf = append(r.buf, r.chunk[:m]...)
		if rerr != nil {
			// Последний кусок мог дополнить кадр.
			if p, n, derr := Decode(r.buf); derr == nil && n > 0 {
				r.consume(n)
				return p, nil
			}
			return Packet{}, rerr
		}
	}
}

// Buffered returns the number of bytes held for the next frame.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

func (r *Reader) consume(n int) {
	rest := copy(r.buf, r.buf[n:])
	r.buf = r.buf[:rest]
}
