package api

// LevelInfo is one aggregated price level.
type LevelInfo struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// BookResponse is the cached depth snapshot from the last admin cycle.
type BookResponse struct {
	Cycle     int64       `json:"cycle"`
	UpdatedAt int64       `json:"updated_at"` // Unix milliseconds
	Bids      []LevelInfo `json:"bids"`
	Asks      []LevelInfo `json:"asks"`
}

// AccountInfo is the public view of one account.
type AccountInfo struct {
	Addr            string  `json:"addr"`
	Cash            float64 `json:"cash"`
	Position        int64   `json:"position"`
	MarketMaker     bool    `json:"market_maker"`
	LiquidityCredit int64   `json:"liquidity_credit"`
	CyclesPresent   int64   `json:"cycles_present"`
}

// TradeInfo is one broadcast fill.
type TradeInfo struct {
	Taker     string  `json:"taker"`
	Maker     string  `json:"maker"`
	OrderID   int64   `json:"order_id"`
	Qty       int64   `json:"qty"`
	Price     float64 `json:"price"`
	Kind      string  `json:"kind"`
	Timestamp int64   `json:"ts"`
}

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSMessage is the server -> client envelope.
type WSMessage struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}
