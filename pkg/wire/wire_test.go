package wire

import (
	"encoding/binary"
	"math"
	"testing"
)

func limitFrame(price float64, qty int64) []byte {
	buf := make([]byte, 17)
	buf[0] = TagLimit
	binary.LittleEndian.PutUint64(buf[1:9], math.Float64bits(price))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(qty))
	return buf
}

func qtyFrame(tag byte, qty int64) []byte {
	buf := make([]byte, 9)
	buf[0] = tag
	binary.LittleEndian.PutUint64(buf[1:9], uint64(qty))
	return buf
}

func hiddenFrame(qty int64, price float64) []byte {
	buf := make([]byte, 17)
	buf[0] = TagHidden
	binary.LittleEndian.PutUint64(buf[1:9], uint64(qty))
	binary.LittleEndian.PutUint64(buf[9:17], math.Float64bits(price))
	return buf
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		marketMaker bool
		want        Request
	}{
		{name: "empty", buf: nil, want: nil},
		{name: "unknown tag", buf: []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0}, want: nil},
		{name: "limit buy", buf: limitFrame(10.5, 25), want: Limit{Price: 10.5, Qty: 25}},
		{name: "limit sell", buf: limitFrame(3.25, -4), want: Limit{Price: 3.25, Qty: -4}},
		{name: "limit short buffer", buf: limitFrame(10.5, 25)[:16], want: nil},
		{name: "limit nan price", buf: limitFrame(math.NaN(), 5), want: nil},
		{name: "limit negative price", buf: limitFrame(-1.0, 5), want: nil},
		{name: "limit negative zero price", buf: limitFrame(math.Copysign(0, -1), 5), want: nil},
		{name: "limit qty over cap", buf: limitFrame(1.0, MaxOrderQty+1), want: nil},
		{name: "limit sell qty over cap", buf: limitFrame(1.0, -(MaxOrderQty + 1)), want: nil},
		{name: "limit qty at cap", buf: limitFrame(1.0, MaxOrderQty), want: Limit{Price: 1.0, Qty: MaxOrderQty}},
		{name: "market", buf: qtyFrame(TagMarket, -7), want: Market{Qty: -7}},
		{name: "market short buffer", buf: qtyFrame(TagMarket, -7)[:8], want: nil},
		{name: "market qty over cap", buf: qtyFrame(TagMarket, MaxOrderQty+1), want: nil},
		{name: "cancel", buf: qtyFrame(TagCancel, 1234567), want: Cancel{ID: 1234567}},
		{name: "cancel short buffer", buf: qtyFrame(TagCancel, 1)[:5], want: nil},
		{name: "hidden without privilege", buf: hiddenFrame(5, 2.0), marketMaker: false, want: nil},
		{name: "hidden with privilege", buf: hiddenFrame(5, 2.0), marketMaker: true, want: Hidden{Qty: 5, Price: 2.0}},
		{name: "hidden short buffer", buf: hiddenFrame(5, 2.0)[:12], marketMaker: true, want: nil},
		// Hidden carries no numeric validation: NaN price and oversized
		// quantity decode fine for qualified makers.
		{name: "hidden nan price", buf: hiddenFrame(5, math.NaN()), marketMaker: true, want: Hidden{Qty: 5, Price: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeRequest(tt.buf, tt.marketMaker)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected reject, got %#v", got)
				}
				return
			}
			if h, ok := tt.want.(Hidden); ok && math.IsNaN(h.Price) {
				gh, ok := got.(Hidden)
				if !ok || gh.Qty != h.Qty || !math.IsNaN(gh.Price) {
					t.Fatalf("got %#v, want NaN-price hidden", got)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeSizes(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		size int
		op   byte
	}{
		{"limit accepted", EncodeLimitAccepted(42), 18, OpOrderResponse},
		{"cancel ack", EncodeCancelAck(true, 42), 18, OpOrderResponse},
		{"market fill", EncodeMarketFill(5, 10.0), 18, OpOrderResponse},
		{"hidden accepted", EncodeHiddenAccepted(42), 18, OpOrderResponse},
		{"execution", EncodeExecution(42, 5, 10.0), 25, OpExecution},
		{"account", EncodeAccount(100.0, 3, -2), 25, OpAccount},
		{"depth", EncodeDepth(nil, nil), DepthBufSize, OpDepthBids},
	}
	for _, tt := range tests {
		if len(tt.buf) != tt.size {
			t.Errorf("%s: size %d, want %d", tt.name, len(tt.buf), tt.size)
		}
		if tt.buf[0] != tt.op {
			t.Errorf("%s: opcode 0x%02x, want 0x%02x", tt.name, tt.buf[0], tt.op)
		}
	}
}

func TestEncodeExecutionLayout(t *testing.T) {
	buf := EncodeExecution(77, 5, 2.5)

	if got := int64(binary.LittleEndian.Uint64(buf[1:9])); got != 77 {
		t.Errorf("order id = %d, want 77", got)
	}
	if got := int64(binary.LittleEndian.Uint64(buf[9:17])); got != 5 {
		t.Errorf("qty = %d, want 5", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[17:25])); got != 2.5 {
		t.Errorf("price = %v, want 2.5", got)
	}
}

func TestEncodeAccountLayout(t *testing.T) {
	buf := EncodeAccount(9950.0, 1, 5)

	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[1:9])); got != 9950.0 {
		t.Errorf("cash = %v, want 9950", got)
	}
	if got := int64(binary.LittleEndian.Uint64(buf[9:17])); got != 1 {
		t.Errorf("credit = %d, want 1", got)
	}
	if got := int64(binary.LittleEndian.Uint64(buf[17:25])); got != 5 {
		t.Errorf("position = %d, want 5", got)
	}
}

func TestEncodeDepth(t *testing.T) {
	bids := []Level{{Price: 10.0, Volume: 7}, {Price: 9.5, Volume: 3}}
	asks := []Level{{Price: 11.0, Volume: 4}}

	buf := EncodeDepth(bids, asks)

	if buf[0] != OpDepthBids {
		t.Fatalf("bid marker = 0x%02x", buf[0])
	}
	if buf[DepthAskOffset] != OpDepthAsks {
		t.Fatalf("ask marker = 0x%02x", buf[DepthAskOffset])
	}

	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[1:9])); got != 10.0 {
		t.Errorf("first bid price = %v", got)
	}
	if got := int64(binary.LittleEndian.Uint64(buf[9:17])); got != 7 {
		t.Errorf("first bid volume = %d", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[17:25])); got != 9.5 {
		t.Errorf("second bid price = %v", got)
	}

	// The ask half repeats the price in the volume field.
	off := DepthAskOffset + 1
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8])); got != 11.0 {
		t.Errorf("ask price = %v", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[off+8 : off+16])); got != 11.0 {
		t.Errorf("ask volume field = %v, want the price repeated", got)
	}
}

func TestEncodeDepthCapsLevels(t *testing.T) {
	var bids []Level
	for i := 0; i < 500; i++ {
		bids = append(bids, Level{Price: float64(1000 - i), Volume: 1})
	}

	buf := EncodeDepth(bids, nil)

	// 127 slots fit after the bid marker; the 128th would cross into the
	// ask half and must be dropped, leaving the marker intact.
	lastSlotEnd := 1 + 127*16
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[lastSlotEnd-16 : lastSlotEnd-8])); got != float64(1000-126) {
		t.Errorf("last bid price = %v, want %v", got, float64(1000-126))
	}
	for i := lastSlotEnd; i < DepthAskOffset; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d written past the last full slot", i)
		}
	}
	if buf[DepthAskOffset] != OpDepthAsks {
		t.Fatalf("ask marker clobbered: 0x%02x", buf[DepthAskOffset])
	}
}
