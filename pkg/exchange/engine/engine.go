package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/exchange/book"
	"github.com/openoutcry/pit/pkg/util"
	"github.com/openoutcry/pit/pkg/wire"
)

// Lifecycle thresholds. Cash at or below the floor, or presence beyond the
// ceiling, evicts an account; a qualified non-local account at or above the
// win target is removed and rewarded instead. Win is checked first.
const (
	winCash          = 10_000_000.0
	evictCashFloor   = 10.0
	maxCyclesPresent = 2 * 30 * 60
)

type Config struct {
	// CycleBudget bounds a request-processing slice.
	CycleBudget time.Duration
	// PollInterval bounds one wait for the next queued request.
	PollInterval time.Duration
	// Reward is delivered verbatim to winning accounts.
	Reward []byte
}

// Snapshot is the per-cycle state handed to observers (the status API).
type Snapshot struct {
	Cycle    int64
	Bids     []wire.Level
	Asks     []wire.Level
	Accounts int
}

// Engine is the lifecycle scheduler: the sole owner of the order book and
// sole consumer of the inbound queue. It drains requests for a bounded
// slice, then runs the administrative cycle (eviction, crossing sweep,
// compaction, snapshot broadcast) and repeats.
type Engine struct {
	book  *book.Book
	reg   *account.Registry
	send  wire.Sender
	in    <-chan wire.Envelope
	clock util.Clock
	log   *zap.SugaredLogger
	cfg   Config

	cycle int64

	// OnCycle, when set, observes each completed administrative cycle.
	// Called from the processing goroutine; must not block.
	OnCycle func(Snapshot)
}

func New(b *book.Book, reg *account.Registry, send wire.Sender, in <-chan wire.Envelope, clock util.Clock, log *zap.SugaredLogger, cfg Config) *Engine {
	return &Engine{
		book:  b,
		reg:   reg,
		send:  send,
		in:    in,
		clock: clock,
		log:   log,
		cfg:   cfg,
	}
}

// Run drives the scheduler until ctx is cancelled or the inbound queue
// closes.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.slice(ctx) {
			return ctx.Err()
		}
		e.AdminCycle()
	}
}

// slice drains requests for up to the cycle budget. Returns false when the
// loop should stop.
func (e *Engine) slice(ctx context.Context) bool {
	start := e.clock.Now()
	for e.clock.Now().Sub(start) < e.cfg.CycleBudget {
		select {
		case <-ctx.Done():
			return false
		case env, ok := <-e.in:
			if !ok {
				return false
			}
			e.Dispatch(env)
		case <-e.clock.After(e.cfg.PollInterval):
		}
	}
	return true
}

// Dispatch routes one request to its handler and answers rejections with
// the fixed per-kind opcode. No structured reason is communicated.
func (e *Engine) Dispatch(env wire.Envelope) {
	switch req := env.Req.(type) {
	case wire.Limit:
		if !e.book.Limit(e.reg, e.send, env.From, req) {
			e.send.Send(env.From, []byte{wire.OpRejectLimit})
		}
	case wire.Market:
		if !e.book.Market(e.reg, e.send, env.From, req) {
			e.send.Send(env.From, []byte{wire.OpRejectMarket})
		}
	case wire.Cancel:
		if !e.book.Cancel(e.send, env.From, req) {
			e.send.Send(env.From, []byte{wire.OpRejectCancel})
		}
	case wire.Hidden:
		if !e.book.Hidden(e.reg, e.send, env.From, req) {
			e.send.Send(env.From, []byte{wire.OpRejectHidden})
		}
	}
}

// AdminCycle runs one administrative cycle: eviction, the crossing sweep
// with compaction, then the depth and account snapshot broadcast.
func (e *Engine) AdminCycle() {
	e.cycle++

	wins, evicted := e.reg.Reap(judge)
	for _, acc := range wins {
		e.send.Send(acc.Addr, e.cfg.Reward)
		e.log.Infow("account_won", "addr", acc.Addr.String(), "cash", acc.Cash)
	}
	for _, acc := range evicted {
		e.send.Send(acc.Addr, []byte{wire.OpDisconnect})
		e.log.Infow("account_evicted",
			"addr", acc.Addr.String(),
			"cash", acc.Cash,
			"cycles_present", acc.CyclesPresent)
	}

	e.book.Cross(e.reg, e.send)
	e.book.Compact(e.reg.Has)

	bids, asks := e.book.Levels()
	depth := wire.EncodeDepth(bids, asks)
	e.book.AgeEntries()

	accounts := e.reg.AdvanceCycle()
	for _, acc := range accounts {
		e.send.Send(acc.Addr, depth)
		e.send.Send(acc.Addr, wire.EncodeAccount(acc.Cash, acc.LiquidityCredit, acc.Position))
	}

	if e.OnCycle != nil {
		e.OnCycle(Snapshot{
			Cycle:    e.cycle,
			Bids:     bids,
			Asks:     asks,
			Accounts: len(accounts),
		})
	}

	// Periodic progress line; per-cycle logging would drown the output.
	if e.cycle%120 == 0 {
		e.log.Infow("cycle_progress",
			"cycle", e.cycle,
			"accounts", len(accounts),
			"resting_orders", e.book.Depth())
	}
}

// judge classifies one account for the eviction pass. Win takes precedence
// over loss; local accounts can never win.
func judge(acc *account.Account) account.Verdict {
	if acc.Cash >= winCash && acc.MarketMaker && !acc.Local() {
		return account.Win
	}
	if acc.Cash <= evictCashFloor || acc.CyclesPresent > maxCyclesPresent {
		return account.Evict
	}
	return account.Keep
}
