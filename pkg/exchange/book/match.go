package book

import (
	"net/netip"

	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/wire"
)

// The four request handlers. Each returns false for a business-rule
// rejection; the caller answers with the fixed per-kind reject opcode.
// Fills applied before a later failure are not rolled back.

// Limit validates the full requested quantity up front, then rests the
// order. Limit orders never match at submission time: crossing is resolved
// by market/hidden orders walking the book or by the periodic sweep.
func (b *Book) Limit(reg *account.Registry, send wire.Sender, from netip.AddrPort, req wire.Limit) bool {
	acc, ok := reg.Snapshot(from)
	if !ok {
		return false
	}

	key := PriceKey(req.Price)

	if req.Qty < 0 {
		if -req.Qty > acc.Position {
			return false
		}
		id := b.mint(key)
		b.asks[key] = append(b.asks[key], &Entry{Owner: from, Qty: -req.Qty, ID: id})
		send.Send(from, wire.EncodeLimitAccepted(id))
		return true
	}

	if req.Price*float64(req.Qty) > acc.Cash {
		return false
	}
	id := b.mint(key)
	b.bids[key] = append(b.bids[key], &Entry{Owner: from, Qty: req.Qty, ID: id})
	send.Send(from, wire.EncodeLimitAccepted(id))
	return true
}

// Market walks the opposite side best-price-first, FIFO within each level.
// A sell requires full position coverage up front and fails if the bids
// cannot absorb the quantity. A buy is affordability-checked against the
// best ask level only, and any remainder after the asks are exhausted is
// forced through at a unit price of 1.0 rather than rejected.
func (b *Book) Market(reg *account.Registry, send wire.Sender, from netip.AddrPort, req wire.Market) bool {
	if req.Qty < 0 {
		return b.marketSell(reg, send, from, -req.Qty)
	}
	return b.marketBuy(reg, send, from, req.Qty)
}

func (b *Book) marketSell(reg *account.Registry, send wire.Sender, from netip.AddrPort, qty int64) bool {
	acc, ok := reg.Snapshot(from)
	if !ok || acc.Position < qty {
		return false
	}

	remaining := qty
	for _, key := range b.bidKeysDesc() {
		price := KeyPrice(key)
		for _, entry := range b.bids[key] {
			if entry.Qty == 0 {
				continue
			}
			amt := minQty(entry.Qty, remaining)
			entry.Qty -= amt
			remaining -= amt

			if reg.Apply(entry.Owner, func(buyer *account.Account) {
				buyer.Cash -= float64(amt) * price
				buyer.Position += amt
				buyer.AddCredit(1)
			}) {
				send.Send(entry.Owner, wire.EncodeExecution(entry.ID, amt, price))
			}

			if reg.Apply(from, func(taker *account.Account) {
				taker.Cash += float64(amt) * price
				taker.Position -= amt
				taker.AddCredit(-1)
			}) {
				send.Send(from, wire.EncodeMarketFill(amt, price))
			}

			b.fill(Fill{Taker: from, Maker: entry.Owner, OrderID: entry.ID, Qty: amt, Price: price, Kind: "market"})

			if remaining <= 0 {
				return true
			}
		}
	}

	return remaining == 0
}

func (b *Book) marketBuy(reg *account.Registry, send wire.Sender, from netip.AddrPort, qty int64) bool {
	acc, ok := reg.Snapshot(from)
	if !ok {
		return false
	}

	// Pre-trade affordability uses the best ask level only, not the full
	// sweep cost. No asks resting means no check at all.
	askKeys := b.askKeysAsc()
	if len(askKeys) > 0 {
		if KeyPrice(askKeys[0])*float64(qty) > acc.Cash {
			return false
		}
	}

	remaining := qty
	for _, key := range askKeys {
		price := KeyPrice(key)
		for _, entry := range b.asks[key] {
			if entry.Qty == 0 {
				continue
			}
			amt := minQty(entry.Qty, remaining)
			entry.Qty -= amt
			remaining -= amt

			if reg.Apply(entry.Owner, func(seller *account.Account) {
				seller.Cash += float64(amt) * price
				seller.Position -= amt
				seller.AddCredit(1)
			}) {
				send.Send(entry.Owner, wire.EncodeExecution(entry.ID, amt, price))
			}

			if reg.Apply(from, func(taker *account.Account) {
				taker.Cash -= float64(amt) * price
				taker.Position += amt
				taker.AddCredit(-1)
			}) {
				send.Send(from, wire.EncodeMarketFill(amt, price))
			}

			b.fill(Fill{Taker: from, Maker: entry.Owner, OrderID: entry.ID, Qty: amt, Price: price, Kind: "market"})

			if remaining <= 0 {
				return true
			}
		}
	}

	// The buy tail always fills, at a fallback unit price. The fill report
	// carries quantity zero, a kept wire quirk of the original policy.
	if remaining != 0 {
		if reg.Apply(from, func(taker *account.Account) {
			taker.Cash -= float64(remaining) * 1.0
			taker.Position += remaining
		}) {
			remaining = 0
			send.Send(from, wire.EncodeMarketFill(0, 1.0))
		}
	}

	return remaining == 0
}

// Hidden is the market-maker-only variant of Market with the pre-trade
// checks deliberately inverted: a sell is money-checked against the lowest
// resting bid level (and requires bids to exist), a buy is checked against
// current position. The aggressor's cash/position movement is likewise
// inverted relative to Market, and the aggressor's liquidity credit is
// left untouched. Intentional policy, not a normalization bug.
func (b *Book) Hidden(reg *account.Registry, send wire.Sender, from netip.AddrPort, req wire.Hidden) bool {
	if req.Qty < 0 {
		return b.hiddenSell(reg, send, from, req.Qty)
	}
	return b.hiddenBuy(reg, send, from, req.Qty)
}

func (b *Book) hiddenSell(reg *account.Registry, send wire.Sender, from netip.AddrPort, signedQty int64) bool {
	acc, ok := reg.Snapshot(from)
	if !ok {
		return false
	}

	bidKeys := b.bidKeysAsc()
	if len(bidKeys) == 0 {
		return false
	}
	// Signed quantity is still negative here, so the product is negative
	// and the check passes whenever cash is non-negative. Kept as is.
	if KeyPrice(bidKeys[0])*float64(signedQty) > acc.Cash {
		return false
	}

	remaining := -signedQty
	for i := len(bidKeys) - 1; i >= 0; i-- {
		key := bidKeys[i]
		price := KeyPrice(key)
		for _, entry := range b.bids[key] {
			if entry.Qty == 0 {
				continue
			}
			amt := minQty(entry.Qty, remaining)
			entry.Qty -= amt
			remaining -= amt

			if reg.Apply(entry.Owner, func(buyer *account.Account) {
				buyer.Cash -= float64(amt) * price
				buyer.Position += amt
				buyer.AddCredit(1)
			}) {
				send.Send(entry.Owner, wire.EncodeExecution(entry.ID, amt, price))
			}

			if reg.Apply(from, func(taker *account.Account) {
				taker.Cash -= float64(amt) * price
				taker.Position += amt
				taker.RefreshMaker()
			}) {
				send.Send(from, wire.EncodeMarketFill(amt, price))
			}

			b.fill(Fill{Taker: from, Maker: entry.Owner, OrderID: entry.ID, Qty: amt, Price: price, Kind: "hidden"})

			if remaining <= 0 {
				return true
			}
		}
	}

	return remaining == 0
}

func (b *Book) hiddenBuy(reg *account.Registry, send wire.Sender, from netip.AddrPort, qty int64) bool {
	acc, ok := reg.Snapshot(from)
	if !ok || acc.Position < qty {
		return false
	}

	remaining := qty
	for _, key := range b.askKeysAsc() {
		price := KeyPrice(key)
		for _, entry := range b.asks[key] {
			if entry.Qty == 0 {
				continue
			}
			amt := minQty(entry.Qty, remaining)
			entry.Qty -= amt
			remaining -= amt

			if reg.Apply(entry.Owner, func(seller *account.Account) {
				seller.Cash += float64(amt) * price
				seller.Position -= amt
				seller.AddCredit(1)
			}) {
				send.Send(entry.Owner, wire.EncodeExecution(entry.ID, amt, price))
			}

			if reg.Apply(from, func(taker *account.Account) {
				taker.Cash += float64(amt) * price
				taker.Position -= amt
				taker.RefreshMaker()
			}) {
				send.Send(from, wire.EncodeMarketFill(amt, price))
			}

			b.fill(Fill{Taker: from, Maker: entry.Owner, OrderID: entry.ID, Qty: amt, Price: price, Kind: "hidden"})

			if remaining <= 0 {
				return true
			}
		}
	}

	return remaining == 0
}

// Cancel recovers the price level from the identifier's high bits and
// removes the first entry matching both identifier and requesting origin,
// checking bids before asks.
func (b *Book) Cancel(send wire.Sender, from netip.AddrPort, req wire.Cancel) bool {
	key := PriceKeyFromID(req.ID)

	if removeEntry(b.bids, key, req.ID, from) || removeEntry(b.asks, key, req.ID, from) {
		send.Send(from, []byte{wire.OpCancelled})
		return true
	}
	return false
}

func removeEntry(side map[int64][]*Entry, key, id int64, owner netip.AddrPort) bool {
	level, ok := side[key]
	if !ok {
		return false
	}
	for i, e := range level {
		if e.ID == id && e.Owner == owner {
			level = append(level[:i], level[i+1:]...)
			if len(level) == 0 {
				delete(side, key)
			} else {
				side[key] = level
			}
			return true
		}
	}
	return false
}
