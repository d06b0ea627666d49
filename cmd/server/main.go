package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openoutcry/pit/params"
	"github.com/openoutcry/pit/pkg/api"
	"github.com/openoutcry/pit/pkg/exchange/account"
	"github.com/openoutcry/pit/pkg/exchange/book"
	"github.com/openoutcry/pit/pkg/exchange/engine"
	"github.com/openoutcry/pit/pkg/storage"
	"github.com/openoutcry/pit/pkg/transport"
	"github.com/openoutcry/pit/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Storage.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// The reward payload is delivered verbatim to winning accounts.
	reward, err := os.ReadFile(cfg.Engine.RewardFile)
	if err != nil {
		sugar.Fatalw("reward_file_unreadable", "path", cfg.Engine.RewardFile, "err", err)
	}

	reg := account.NewRegistry()

	srv, err := transport.Listen(cfg.Server.ListenAddr, reg, sugar)
	if err != nil {
		sugar.Fatalw("udp_listen_failed", "addr", cfg.Server.ListenAddr, "err", err)
	}
	sugar.Infow("udp_listening", "addr", cfg.Server.ListenAddr)

	// ---- Trade journal (optional) ----
	var journal *storage.Journal
	if cfg.Storage.JournalPath != "" {
		journal, err = storage.OpenJournal(cfg.Storage.JournalPath)
		if err != nil {
			sugar.Warnw("journal_disabled", "path", cfg.Storage.JournalPath, "err", err)
			journal = nil
		} else {
			defer journal.Close()
			sugar.Infow("journal_open", "path", cfg.Storage.JournalPath)
		}
	}

	// ---- Status API ----
	apiServer := api.NewServer(reg, journal)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Server.APIAddr)
		if err := apiServer.Start(cfg.Server.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Matching engine ----
	ob := book.New()
	ob.OnFill = func(f book.Fill) {
		if journal != nil {
			if err := journal.Append(f); err != nil {
				sugar.Warnw("journal_append_failed", "err", err)
			}
		}
		apiServer.BroadcastTrade(f)
	}

	eng := engine.New(ob, reg, srv, srv.Requests(), util.RealClock{}, sugar, engine.Config{
		CycleBudget:  cfg.Engine.CycleBudget,
		PollInterval: cfg.Engine.PollInterval,
		Reward:       reward,
	})
	eng.OnCycle = func(snap engine.Snapshot) {
		apiServer.UpdateBook(snap.Cycle, snap.Bids, snap.Asks)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			sugar.Fatalw("udp_receive_failed", "err", err)
		}
	}()

	sugar.Infow("engine_starting",
		"cycle_budget_ms", cfg.Engine.CycleBudget.Milliseconds(),
		"poll_interval_ms", cfg.Engine.PollInterval.Milliseconds())

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		sugar.Fatalw("engine_failed", "err", err)
	}
	sugar.Info("shutdown_complete")
}
