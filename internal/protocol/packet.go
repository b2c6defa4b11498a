package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire layout (all integers little-endian):
//
//	[size:int32][id:int32][type:int32][body][0x00][0x00]
//
// size counts everything after itself: id + type + body + two terminators.
const (
	SizeFieldLen  = 4
	headerLen     = 8 // id + type
	terminatorLen = 2

	// MinPacketSize is the smallest legal size value (empty body).
	MinPacketSize = headerLen + terminatorLen

	// MaxPacketSize bounds a single frame. Source servers split responses
	// into 4096-byte bodies; the extra room tolerates other engines.
	MaxPacketSize = MinPacketSize + 64*1024
)

// PacketType — значение поля type. Значение 2 двусмысленно: в сторону сервера
// это EXECCOMMAND, в сторону клиента — AUTH_RESPONSE.
type PacketType int32

const (
	TypeResponseValue PacketType = 0
	TypeExecCommand   PacketType = 2
	TypeAuthResponse  PacketType = 2
	TypeAuth          PacketType = 3
)

var (
	// ErrBodyContainsNull is returned by Encode: the protocol terminates the
	// body with a NUL byte, so an embedded NUL cannot be represented.
	ErrBodyContainsNull = errors.New("packet body contains NUL byte")

	// ErrMalformedPacket is returned by Decode when the size field is out of range.
	ErrMalformedPacket = errors.New("malformed packet")
)

// Packet is one decoded RCON frame. Size is implied by Body.
type Packet struct {
	ID   int32
	Type PacketType
	Body []byte
}

// Size returns the value of the size field for this packet.
func (p Packet) Size() int32 {
	return int32(headerLen + len(p.Body) + terminatorLen)
}

// Encode returns the wire form of a packet.
func Encode(id int32, typ PacketType, body []byte) ([]byte, error) {
	return AppendPacket(make([]byte, 0, SizeFieldLen+MinPacketSize+len(body)), id, typ, body)
}

// AppendPacket appends the wire form of a packet to dst and returns the extended slice.
func AppendPacket(dst []byte, id int32, typ PacketType, body []byte) ([]byte, error) {
	if bytes.IndexByte(body, 0) >= 0 {
		return dst, ErrBodyContainsNull
	}
	size := headerLen + len(body) + terminatorLen
	if size > MaxPacketSize {
		return dst, fmt.Errorf("packet body too large: %d bytes", len(body))
	}

	dst = binary.LittleEndian.AppendUint32(dst, uint32(size))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(id))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(typ))
	dst = append(dst, body...)
	dst = append(dst, 0, 0)
	return dst, nil
}

// Decode parses the first frame in buf.
//
// Returns n == 0 and a nil error when buf does not yet hold a complete frame:
// the caller should read more input and retry with the same bytes.
// On success n is the number of bytes consumed; bytes after n are untouched.
// The returned Body is a copy and does not alias buf.
func Decode(buf []byte) (p Packet, n int, err error) {
	if len(buf) < SizeFieldLen {
		return Packet{}, 0, nil
	}

	size := int32(binary.LittleEndian.Uint32(buf))
	if size < MinPacketSize || size > MaxPacketSize {
		return Packet{}, 0, fmt.Errorf("%w: size %d", ErrMalformedPacket, size)
	}

	total := SizeFieldLen + int(size)
	if len(buf) < total {
		return Packet{}, 0, nil
	}

	p.ID = int32(binary.LittleEndian.Uint32(buf[4:]))
	p.Type = PacketType(int32(binary.LittleEndian.Uint32(buf[8:])))

	// Тело без двух завершающих нулей. Некоторые движки ставят NUL раньше,
	// поэтому режем по первому нулю.
	body := buf[SizeFieldLen+headerLen : total-terminatorLen]
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	p.Body = bytes.Clone(body)
	if p.Body == nil {
		p.Body = []byte{}
	}

	return p, total, nil
}
