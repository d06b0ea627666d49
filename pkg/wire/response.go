package wire

import (
	"encoding/binary"
	"math"
)

// Outbound opcodes. Every message kind has a fixed wire size, so no
// length prefixes are carried.
const (
	OpOrderResponse = 0x01 // 18 bytes, second byte selects the sub-kind
	OpExecution     = 0x20 // 25 bytes, sent to the resting side of a fill
	OpAccount       = 0x21 // 25 bytes, per-account state snapshot
	OpDepthBids     = 0xc1 // bid half marker of the depth snapshot
	OpDepthAsks     = 0xc2 // ask half marker of the depth snapshot
	OpCancelled     = 0xe0 // single byte, cancel success
	OpDisconnect    = 0x69 // single byte, disconnect / eviction notice

	OpRejectLimit  = 0xff
	OpRejectMarket = 0xfe
	OpRejectCancel = 0xfd
	OpRejectHidden = 0xfc
)

// Order-response sub-kinds (second byte under OpOrderResponse).
const (
	subLimitAccepted  = 0
	subCancelAck      = 1
	subMarketFill     = 2
	subHiddenAccepted = 3
)

// Depth snapshot geometry: one combined buffer, bids from offset 0,
// asks from DepthAskOffset, 16-byte (price, volume) slots after each marker.
const (
	DepthBufSize   = 0x1000
	DepthAskOffset = 0x800
	depthSlotSize  = 16
)

// Level is one aggregated price level of the depth snapshot.
type Level struct {
	Price  float64
	Volume int64
}

// EncodeLimitAccepted acknowledges a rested limit order.
func EncodeLimitAccepted(orderID int64) []byte {
	buf := make([]byte, 18)
	buf[0] = OpOrderResponse
	buf[1] = subLimitAccepted
	binary.LittleEndian.PutUint64(buf[2:10], uint64(orderID))
	return buf
}

// EncodeCancelAck reports the outcome of a cancel for the given order.
func EncodeCancelAck(cancelled bool, orderID int64) []byte {
	buf := make([]byte, 18)
	buf[0] = OpOrderResponse
	buf[1] = subCancelAck
	if cancelled {
		buf[2] = 1
	}
	binary.LittleEndian.PutUint64(buf[3:11], uint64(orderID))
	return buf
}

// EncodeMarketFill reports one fill to the aggressor of a market or
// hidden order.
func EncodeMarketFill(qty int64, price float64) []byte {
	buf := make([]byte, 18)
	buf[0] = OpOrderResponse
	buf[1] = subMarketFill
	binary.LittleEndian.PutUint64(buf[2:10], uint64(qty))
	binary.LittleEndian.PutUint64(buf[10:18], math.Float64bits(price))
	return buf
}

// EncodeHiddenAccepted acknowledges a hidden order.
func EncodeHiddenAccepted(orderID int64) []byte {
	buf := make([]byte, 18)
	buf[0] = OpOrderResponse
	buf[1] = subHiddenAccepted
	binary.LittleEndian.PutUint64(buf[2:10], uint64(orderID))
	return buf
}

// EncodeExecution reports a fill to the owner of a resting order.
func EncodeExecution(orderID, qty int64, price float64) []byte {
	buf := make([]byte, 25)
	buf[0] = OpExecution
	binary.LittleEndian.PutUint64(buf[1:9], uint64(orderID))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(qty))
	binary.LittleEndian.PutUint64(buf[17:25], math.Float64bits(price))
	return buf
}

// EncodeAccount snapshots one account's cash, liquidity credit, and position.
func EncodeAccount(cash float64, liquidityCredit, position int64) []byte {
	buf := make([]byte, 25)
	buf[0] = OpAccount
	binary.LittleEndian.PutUint64(buf[1:9], math.Float64bits(cash))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(liquidityCredit))
	binary.LittleEndian.PutUint64(buf[17:25], uint64(position))
	return buf
}

// EncodeDepth builds the combined book snapshot. Bids must be best-first
// descending, asks best-first ascending; levels that do not fit in their
// half are dropped. The ask half writes the level price into both slot
// fields, an observable wire quirk kept on purpose.
func EncodeDepth(bids, asks []Level) []byte {
	buf := make([]byte, DepthBufSize)

	buf[0] = OpDepthBids
	idx := 1
	for _, lvl := range bids {
		if idx+depthSlotSize > DepthAskOffset {
			break
		}
		binary.LittleEndian.PutUint64(buf[idx:idx+8], math.Float64bits(lvl.Price))
		binary.LittleEndian.PutUint64(buf[idx+8:idx+16], uint64(lvl.Volume))
		idx += depthSlotSize
	}

	buf[DepthAskOffset] = OpDepthAsks
	idx = DepthAskOffset + 1
	for _, lvl := range asks {
		if idx+depthSlotSize > DepthBufSize {
			break
		}
		binary.LittleEndian.PutUint64(buf[idx:idx+8], math.Float64bits(lvl.Price))
		binary.LittleEndian.PutUint64(buf[idx+8:idx+16], math.Float64bits(lvl.Price))
		idx += depthSlotSize
	}

	return buf
}
