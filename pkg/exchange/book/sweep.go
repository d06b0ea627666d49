package book

import (
	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/wire"
)

// Cross runs the passive crossing sweep: resting limit orders never match
// each other at submission time, so a price level can exist on both sides
// at once (a crossed/locked book). Once per administrative cycle every
// such level is matched out, FIFO on both sides, with a dual-cursor walk:
// the ask cursor advances whenever the current ask entry is exhausted, and
// each bid entry drains against successive ask entries until the bid is
// exhausted or the level runs out of asks.
//
// Both parties are treated as liquidity providers: cash, position, and
// liquidity credit move symmetrically, and both receive the execution
// report carrying the bid entry's identifier. Exhausted entries are left
// in place for Compact.
func (b *Book) Cross(reg *account.Registry, send wire.Sender) {
	for _, key := range b.bidKeysAsc() {
		asks, ok := b.asks[key]
		if !ok {
			continue
		}
		price := KeyPrice(key)
		ai := 0

	level:
		for _, bid := range b.bids[key] {
			for bid.Qty != 0 {
				for ai < len(asks) && asks[ai].Qty == 0 {
					ai++
				}
				if ai >= len(asks) {
					// Asks ran out at this level; abandon it.
					break level
				}
				ask := asks[ai]

				amt := minQty(bid.Qty, ask.Qty)
				bid.Qty -= amt
				ask.Qty -= amt

				exec := wire.EncodeExecution(bid.ID, amt, price)

				if reg.Apply(bid.Owner, func(buyer *account.Account) {
					buyer.Cash -= float64(amt) * price
					buyer.Position += amt
					buyer.AddCredit(1)
				}) {
					send.Send(bid.Owner, exec)
				}

				if reg.Apply(ask.Owner, func(seller *account.Account) {
					seller.Cash += float64(amt) * price
					seller.Position -= amt
					seller.AddCredit(1)
				}) {
					send.Send(ask.Owner, exec)
				}

				b.fill(Fill{Taker: bid.Owner, Maker: ask.Owner, OrderID: bid.ID, Qty: amt, Price: price, Kind: "sweep"})
			}
		}
	}
}
