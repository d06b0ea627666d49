package wire

import (
	"encoding/binary"
	"math"
	"net/netip"
)

// Inbound request tags (first byte of every datagram).
const (
	TagLimit      = 0x00
	TagMarket     = 0x01
	TagCancel     = 0x02
	TagHidden     = 0x03 // market-maker privilege required
	TagDisconnect = 0x69
)

// MaxDatagram is the receive frame size; larger datagrams are dropped.
const MaxDatagram = 2048

// MaxOrderQty caps the magnitude of limit and market order quantities.
const MaxOrderQty = 10000

// Sender delivers an encoded message to a network origin.
// Implementations must be safe for use without holding any registry lock.
type Sender interface {
	Send(to netip.AddrPort, payload []byte)
}

// Request is one decoded client request. Quantity sign encodes side for
// every kind: negative = sell, positive = buy.
type Request interface {
	isRequest()
}

// Limit rests an order on the book at the given price.
type Limit struct {
	Price float64
	Qty   int64
}

// Market consumes resting liquidity immediately.
type Market struct {
	Qty int64
}

// Cancel removes a resting order by identifier.
type Cancel struct {
	ID int64
}

// Hidden is the market-maker-only variant of Market.
// Note the wire order: quantity first, then price.
type Hidden struct {
	Qty   int64
	Price float64
}

func (Limit) isRequest()  {}
func (Market) isRequest() {}
func (Cancel) isRequest() {}
func (Hidden) isRequest() {}

// DecodeRequest parses a datagram into a typed request. A nil return means
// the datagram is rejected and silently dropped: short buffer, malformed
// field, unknown tag, or a hidden order from a non market maker. The
// disconnect tag is handled by the receive path before decoding.
func DecodeRequest(buf []byte, marketMaker bool) Request {
	if len(buf) < 1 {
		return nil
	}
	body := buf[1:]

	switch buf[0] {
	case TagLimit:
		if len(body) < 16 {
			return nil
		}
		price := math.Float64frombits(binary.LittleEndian.Uint64(body[0:8]))
		qty := int64(binary.LittleEndian.Uint64(body[8:16]))
		if math.IsNaN(price) || math.Signbit(price) {
			return nil
		}
		if absInt64(qty) > MaxOrderQty {
			return nil
		}
		return Limit{Price: price, Qty: qty}

	case TagMarket:
		if len(body) < 8 {
			return nil
		}
		qty := int64(binary.LittleEndian.Uint64(body[0:8]))
		if absInt64(qty) > MaxOrderQty {
			return nil
		}
		return Market{Qty: qty}

	case TagCancel:
		if len(body) < 8 {
			return nil
		}
		return Cancel{ID: int64(binary.LittleEndian.Uint64(body[0:8]))}

	case TagHidden:
		if !marketMaker {
			return nil
		}
		if len(body) < 16 {
			return nil
		}
		qty := int64(binary.LittleEndian.Uint64(body[0:8]))
		price := math.Float64frombits(binary.LittleEndian.Uint64(body[8:16]))
		return Hidden{Qty: qty, Price: price}
	}

	return nil
}

// Envelope carries one decoded request tagged with its network origin
// through the ordered hand-off queue into the processing loop.
type Envelope struct {
	From netip.AddrPort
	Req  Request
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
