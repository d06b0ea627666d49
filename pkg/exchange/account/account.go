package account

import "net/netip"

// Seed balances for first contact. Loopback origins are treated as house
// accounts and excluded from the win condition.
const (
	LocalSeedCash  = 1e9
	RemoteSeedCash = 10000.0
)

// MakerCredit is the liquidity credit at which an account qualifies as a
// market maker. The flag is derived, recomputed on every credit write.
const MakerCredit = 100

// Account is the per-origin financial state: cash, signed position,
// liquidity credit with its derived market-maker flag, and a presence
// counter bumped once per administrative cycle.
type Account struct {
	Addr            netip.AddrPort
	Cash            float64
	Position        int64
	MarketMaker     bool
	LiquidityCredit int64
	CyclesPresent   int64
}

// New seeds an account by origin locality.
func New(addr netip.AddrPort) *Account {
	cash := RemoteSeedCash
	if addr.Addr().IsLoopback() {
		cash = LocalSeedCash
	}
	return &Account{Addr: addr, Cash: cash}
}

// Local reports whether the account's origin is loopback.
func (a *Account) Local() bool {
	return a.Addr.Addr().IsLoopback()
}

// AddCredit adjusts liquidity credit and rederives the market-maker flag.
// Negative deltas are allowed: aggressors are penalized on some paths.
func (a *Account) AddCredit(delta int64) {
	a.LiquidityCredit += delta
	a.RefreshMaker()
}

// RefreshMaker rederives the market-maker flag from liquidity credit.
func (a *Account) RefreshMaker() {
	a.MarketMaker = a.LiquidityCredit >= MakerCredit
}
