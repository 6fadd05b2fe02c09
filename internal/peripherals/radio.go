// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package peripherals

// Radio MMIO layout (canonical, documented layout for the chosen
// 128-pointer-slot-capacity / 512-byte-ring / read-filter radio variant):
//
//	+0x000         load: status, bit0 = send cooldown elapsed
//	+0x004         store: command word op|range|opts|filter-flag (packed
//	               the way motor/arm commands are); op 0x01 = send the
//	               outgoing buffer to every bot within a side-`range`
//	               square (range in {3,5,7,9}) centred on this one
//	+0x008..0x088  outgoing 128-byte buffer (32 words), read/write
//	+0x088..0x288  incoming 512-byte ring (128 words), read-only: word i
//	               is ring byte (front + 4*i) mod 512
//	+0x288         load: front (byte offset of the oldest queued byte)
//	+0x28C         load: length (bytes currently queued); store: consume
//	               N bytes, advancing front and decrementing length
//	+0x290         load/store: 4-byte filter (0 = disabled; nonzero must
//	               equal an incoming message's sender-id low 4 bytes)
//
// Each queued message is framed as a 10-byte header (1 byte hasFrom, 8
// bytes sender id, 1 byte payload length) followed by its payload, so
// firmware parses message boundaries out of the raw ring itself rather
// than through a separate pointer table.
const (
	radioOutBase   = 0x008
	radioOutSize   = 128
	radioRingBase  = 0x088
	radioRingBytes = 512
	radioFrontOff  = 0x288
	radioLenOff    = 0x28C
	radioFilterOff = 0x290

	radioHeaderSize  = 10
	radioMessageSize = radioHeaderSize + radioOutSize

	cooldownRadioSend uint32 = 2_000
	radioJitter              = 10
)

// Radio implements bot-to-bot messaging: an immediate, range-limited send
// and a queued, filterable receive exposed as a raw byte ring.
type Radio struct {
	irq *Irq
	ctx WorldCtx

	cooldown uint32

	outBuf [radioOutSize]byte

	ring        [radioRingBytes]byte
	front, rlen int

	filterSet bool
	filter    [4]byte
}

func NewRadio(irq *Irq) *Radio {
	return &Radio{irq: irq}
}

func (r *Radio) SetCtx(ctx WorldCtx) { r.ctx = ctx }

func (r *Radio) Load(addr uint32) (uint32, error) {
	switch {
	case addr == 0x000:
		return b2u32(r.cooldown == 0), nil

	case addr >= radioOutBase && addr < radioOutBase+radioOutSize:
		off := addr - radioOutBase
		return le32Bytes(r.outBuf[off : off+4]), nil

	case addr >= radioRingBase && addr < radioRingBase+radioRingBytes:
		i := int((addr - radioRingBase) / 4)
		return r.loadRingWord(i), nil

	case addr == radioFrontOff:
		return uint32(r.front), nil

	case addr == radioLenOff:
		return uint32(r.rlen), nil

	case addr == radioFilterOff:
		return u32le(r.filter), nil

	default:
		return 0, errFault
	}
}

func (r *Radio) Store(addr uint32, val uint32) error {
	switch {
	case addr == 0x004:
		if r.cooldown > 0 {
			return nil
		}
		op, rangeByte, _, _ := unpack(val)
		if op != 0x01 {
			return errFault
		}
		side, ok := validRadarSide(rangeByte)
		if !ok {
			return errFault
		}
		r.send(side)
		return nil

	case addr >= radioOutBase && addr < radioOutBase+radioOutSize:
		off := addr - radioOutBase
		b := le32(val)
		copy(r.outBuf[off:off+4], b[:])
		return nil

	case addr == radioLenOff:
		r.consume(int(val))
		return nil

	case addr == radioFilterOff:
		r.filter = le32(val)
		r.filterSet = val != 0
		return nil

	default:
		return errFault
	}
}

func (r *Radio) loadRingWord(i int) uint32 {
	var b [4]byte
	for k := 0; k < 4; k++ {
		b[k] = r.ring[(r.front+4*i+k)%radioRingBytes]
	}
	return le32Bytes(b[:])
}

func (r *Radio) send(side int) {
	self, hasSelf := r.ctx.BotAt(r.ctx.Pos())

	targets := r.ctx.BotsInSquare(r.ctx.Pos(), r.ctx.Dir(), side)
	for _, to := range targets {
		if hasSelf && to == self {
			continue
		}
		r.ctx.DeliverRadio(to, self, hasSelf, r.outBuf)
	}

	r.irq.Raise(IrqRadioBusy, [3]byte{})
	r.cooldown = r.ctx.Cooldown(cooldownRadioSend*uint32(side)/3, radioJitter)
}

// Receive is called by the world's DeliverRadio once it has located the
// target bot's Radio.
func (r *Radio) Receive(from uint64, hasFrom bool, payload [radioOutSize]byte) {
	if r.filterSet {
		var fromBytes [4]byte
		fromBytes[0], fromBytes[1] = byte(from), byte(from>>8)
		fromBytes[2], fromBytes[3] = byte(from>>16), byte(from>>24)
		if fromBytes != r.filter {
			return
		}
	}

	for r.rlen+radioMessageSize > radioRingBytes {
		if r.rlen == 0 {
			return // a single message can't exceed ring capacity
		}
		r.evictOldest()
	}

	r.pushByte(b2byte(hasFrom))
	for i := 0; i < 8; i++ {
		r.pushByte(byte(from >> (8 * i)))
	}
	r.pushByte(radioOutSize)
	for _, b := range payload {
		r.pushByte(b)
	}

	r.irq.Raise(IrqRadioRecv, [3]byte{})
}

func (r *Radio) pushByte(b byte) {
	r.ring[(r.front+r.rlen)%radioRingBytes] = b
	r.rlen++
}

func (r *Radio) evictOldest() {
	payloadLen := int(r.ring[(r.front+9)%radioRingBytes])
	r.consume(radioHeaderSize + payloadLen)
}

func (r *Radio) consume(n int) {
	if n > r.rlen {
		n = r.rlen
	}
	r.front = (r.front + n) % radioRingBytes
	r.rlen -= n
}

func (r *Radio) Tick() {
	if r.cooldown == 0 {
		return
	}

	r.cooldown--

	if r.cooldown == 0 {
		r.irq.Raise(IrqRadioIdle, [3]byte{})
	}
}

func b2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func u32le(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le32(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le32Bytes(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
