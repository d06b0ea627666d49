package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/exchange/book"
	"github.com/openoutcry/pit/pkg/storage"
	"github.com/openoutcry/pit/pkg/wire"
)

// Server is the read-only HTTP/WebSocket status surface. It never touches
// engine-owned state: the engine pushes an immutable depth snapshot after
// every administrative cycle and fills arrive through the book's fill
// hook. Account reads go through the registry's copying accessors.
type Server struct {
	reg     *account.Registry
	journal *storage.Journal // may be nil
	router  *mux.Router
	hub     *Hub

	mu        sync.RWMutex
	bookState BookResponse
}

// NewServer creates the status server. journal may be nil, in which case
// the trades endpoint serves an empty list.
func NewServer(reg *account.Registry, journal *storage.Journal) *Server {
	s := &Server{
		reg:     reg,
		journal: journal,
		router:  mux.NewRouter(),
		hub:     NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/accounts", s.handleGetAccounts).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the status server.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// UpdateBook caches the depth snapshot from one admin cycle and fans it
// out to subscribed WebSocket clients.
func (s *Server) UpdateBook(cycle int64, bids, asks []wire.Level) {
	state := BookResponse{
		Cycle:     cycle,
		UpdatedAt: time.Now().UnixMilli(),
		Bids:      toLevelInfo(bids),
		Asks:      toLevelInfo(asks),
	}

	s.mu.Lock()
	s.bookState = state
	s.mu.Unlock()

	s.hub.BroadcastToChannel("book", state)
}

// BroadcastTrade fans one fill out to subscribed WebSocket clients.
func (s *Server) BroadcastTrade(f book.Fill) {
	s.hub.BroadcastToChannel("trades", TradeInfo{
		Taker:     f.Taker.String(),
		Maker:     f.Maker.String(),
		OrderID:   f.OrderID,
		Qty:       f.Qty,
		Price:     f.Price,
		Kind:      f.Kind,
		Timestamp: time.Now().UnixMilli(),
	})
}

func toLevelInfo(levels []wire.Level) []LevelInfo {
	out := make([]LevelInfo, len(levels))
	for i, lvl := range levels {
		out[i] = LevelInfo{Price: lvl.Price, Volume: lvl.Volume}
	}
	return out
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := s.bookState
	s.mu.RUnlock()

	writeJSON(w, state)
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.reg.List()

	out := make([]AccountInfo, len(accounts))
	for i, acc := range accounts {
		out[i] = AccountInfo{
			Addr:            acc.Addr.String(),
			Cash:            acc.Cash,
			Position:        acc.Position,
			MarketMaker:     acc.MarketMaker,
			LiquidityCredit: acc.LiquidityCredit,
			CyclesPresent:   acc.CyclesPresent,
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	if s.journal == nil {
		writeJSON(w, []storage.TradeRecord{})
		return
	}

	trades, err := s.journal.Recent(limit)
	if err != nil {
		http.Error(w, "journal read failed", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []storage.TradeRecord{}
	}
	writeJSON(w, trades)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"accounts": s.reg.Count(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}
