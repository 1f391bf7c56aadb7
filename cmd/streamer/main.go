// Command streamer wires configuration, the pool-state store, the
// opportunity ranker, the oracle validator, and the stream orchestrator
// together, generalizing the teacher's cmd/main.go wiring pattern (env
// secrets via godotenv, configs.LoadConfig, construct, run, consume the
// report channel) to this system's components.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pbelltech0/solana-streamer/internal/arb"
	"github.com/pbelltech0/solana-streamer/internal/config"
	"github.com/pbelltech0/solana-streamer/internal/db"
	"github.com/pbelltech0/solana-streamer/internal/health"
	"github.com/pbelltech0/solana-streamer/internal/log"
	"github.com/pbelltech0/solana-streamer/internal/oracle"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/ranker"
	"github.com/pbelltech0/solana-streamer/internal/stream"
	"github.com/pbelltech0/solana-streamer/internal/transport/kafkafeed"
	"github.com/pbelltech0/solana-streamer/internal/transport/wsfeed"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	logger, err := log.New(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	store := poolstate.NewStore(poolstate.DefaultMaxAgeSeconds, logger)
	timings := cfg.ToOrchestratorTimings()
	rank := ranker.New(timings.NMax, timings.TTL)

	oracleCache := oracle.NewCache()
	validator := oracle.New(cfg.ToOracleConfig(), oracleCache)

	counters := health.NewCounters(prometheus.DefaultRegisterer)

	arbCfg, err := cfg.ToArbConfig()
	if err != nil {
		logger.Fatal("invalid arb config", zap.Error(err))
	}

	profitCfg := arb.DefaultProfitConfig()
	profitCfg.GasLamports = cfg.Profit.GasLamports
	profitCfg.TipLamports = cfg.Profit.TipLamports
	profitCfg.SwapFeeOverride = cfg.Profit.SwapFeeOverride
	if cfg.Profit.FlashRate > 0 {
		profitCfg.FlashRate = cfg.Profit.FlashRate
	}
	if cfg.Profit.MinNetProfitPct > 0 {
		profitCfg.MinNetProfitPct = cfg.Profit.MinNetProfitPct
	}
	if cfg.Profit.MinProb > 0 {
		profitCfg.MinProb = cfg.Profit.MinProb
	}
	profitCfg.MinEV = cfg.Profit.MinEV

	var recorder *db.MySQLRecorder
	if cfg.Database.DSN != "" {
		recorder, err = db.NewMySQLRecorder(cfg.Database.DSN)
		if err != nil {
			logger.Warn("opportunity recorder unavailable, continuing without persistence", zap.Error(err))
			recorder = nil
		} else {
			defer recorder.Close()
		}
	}

	callback := func(accepted stream.AcceptedOpportunity) {
		logger.Info("opportunity accepted",
			zap.String("buy_pool", accepted.Opportunity.BuyPool.String()),
			zap.String("sell_pool", accepted.Opportunity.SellPool.String()),
			zap.Int64("net_profit", accepted.Opportunity.NetProfit),
			zap.Float64("ev_score", accepted.Opportunity.EVScore),
		)
		if recorder != nil {
			if err := recorder.Record(accepted.Opportunity); err != nil {
				logger.Warn("failed to record opportunity", zap.Error(err))
			}
		}
	}

	orchestrator := stream.New(store, rank, validator, counters, logger, arbCfg, profitCfg, timings, callback)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	newSource := func() stream.EventSource {
		switch cfg.Transport.Kind {
		case "kafka":
			return kafkafeed.New(cfg.Transport.KafkaBrokers, cfg.Transport.KafkaTopic, "solana-streamer", logger)
		default:
			return wsfeed.New(cfg.Transport.WebsocketURL, logger)
		}
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := counters.Snapshot()
				logger.Info("health snapshot",
					zap.Int64("events_received", snap.EventsReceived),
					zap.Int64("opportunities_accepted", snap.OpportunitiesAccepted),
					zap.Bool("degraded", snap.Degraded),
				)
			}
		}
	}()

	if err := orchestrator.Run(ctx, newSource); err != nil && ctx.Err() == nil {
		logger.Fatal("orchestrator stopped", zap.Error(err))
	}
}
