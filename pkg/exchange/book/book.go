package book

import (
	"net/netip"
	"sort"

	"github.com/openoutcry/pit/pkg/wire"
)

// priceScale converts a floating limit price into the fixed-point key the
// book is ordered by: key = price × 1000, truncated.
const priceScale = 1000.0

// idShift packs the price key into the high bits of an order identifier:
// id = key<<24 | seq. Cancel recovers the key with a plain right shift, so
// no side table is needed. Identifiers sort with price within a run.
const idShift = 24

// PriceKey converts a limit price to its fixed-point level key.
func PriceKey(price float64) int64 {
	return int64(price * priceScale)
}

// KeyPrice converts a level key back to the traded price.
func KeyPrice(key int64) float64 {
	return float64(key) / priceScale
}

// PriceKeyFromID recovers the level key packed into an order identifier.
func PriceKeyFromID(id int64) int64 {
	return id >> idShift
}

// Entry is one resting order: owner origin, remaining quantity, packed
// identifier, and the number of cycles it has rested.
type Entry struct {
	Owner netip.AddrPort
	Qty   int64
	ID    int64
	Age   int64
}

// Fill describes one execution, for the journal and broadcast hooks.
type Fill struct {
	Taker   netip.AddrPort
	Maker   netip.AddrPort
	OrderID int64 // resting order consumed
	Qty     int64
	Price   float64
	Kind    string // "market", "hidden", or "sweep"
}

// Book holds the two sides of the single instrument's limit order book.
// It is owned exclusively by the processing goroutine; no internal locking.
// Each side maps a price key to its FIFO queue of entries. Bids are
// conceptually best-first descending, asks best-first ascending.
type Book struct {
	bids map[int64][]*Entry
	asks map[int64][]*Entry
	seq  int64

	// OnFill, when set, observes every execution after both parties'
	// accounts have been updated. Must not block.
	OnFill func(Fill)
}

func New() *Book {
	return &Book{
		bids: make(map[int64][]*Entry),
		asks: make(map[int64][]*Entry),
	}
}

// mint issues the next identifier for an order resting at key.
func (b *Book) mint(key int64) int64 {
	id := key<<idShift | b.seq
	b.seq++
	return id
}

func (b *Book) fill(f Fill) {
	if b.OnFill != nil {
		b.OnFill(f)
	}
}

// bidKeysDesc returns bid level keys best-first (highest price first).
func (b *Book) bidKeysDesc() []int64 {
	keys := make([]int64, 0, len(b.bids))
	for k := range b.bids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}

// bidKeysAsc returns bid level keys lowest price first.
func (b *Book) bidKeysAsc() []int64 {
	keys := make([]int64, 0, len(b.bids))
	for k := range b.bids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// askKeysAsc returns ask level keys best-first (lowest price first).
func (b *Book) askKeysAsc() []int64 {
	keys := make([]int64, 0, len(b.asks))
	for k := range b.asks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Levels aggregates resting quantity per price level: bids best-first
// descending, asks best-first ascending. Exhausted entries awaiting
// compaction contribute zero volume, matching the wire snapshot.
func (b *Book) Levels() (bids, asks []wire.Level) {
	for _, key := range b.bidKeysDesc() {
		var vol int64
		for _, e := range b.bids[key] {
			vol += e.Qty
		}
		bids = append(bids, wire.Level{Price: KeyPrice(key), Volume: vol})
	}
	for _, key := range b.askKeysAsc() {
		var vol int64
		for _, e := range b.asks[key] {
			vol += e.Qty
		}
		asks = append(asks, wire.Level{Price: KeyPrice(key), Volume: vol})
	}
	return bids, asks
}

// AgeEntries bumps every surviving entry's age counter. Run once per
// administrative cycle, alongside the snapshot broadcast.
func (b *Book) AgeEntries() {
	for _, level := range b.bids {
		for _, e := range level {
			e.Age++
		}
	}
	for _, level := range b.asks {
		for _, e := range level {
			e.Age++
		}
	}
}

// Compact purges exhausted entries and entries whose owner is gone, then
// drops empty levels. After compaction no queue on either side is empty.
func (b *Book) Compact(alive func(netip.AddrPort) bool) {
	compactSide(b.bids, alive)
	compactSide(b.asks, alive)
}

func compactSide(side map[int64][]*Entry, alive func(netip.AddrPort) bool) {
	for key, level := range side {
		kept := level[:0]
		for _, e := range level {
			if e.Qty != 0 && alive(e.Owner) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(side, key)
		} else {
			side[key] = kept
		}
	}
}

// Depth reports the number of resting entries across both sides.
func (b *Book) Depth() int {
	n := 0
	for _, level := range b.bids {
		n += len(level)
	}
	for _, level := range b.asks {
		n += len(level)
	}
	return n
}

func minQty(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
