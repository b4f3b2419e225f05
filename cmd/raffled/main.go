// Package main runs the raffle daemon: the state machine, its keeper, the
// local randomness coordinator and the HTTP API.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pooled-raffle/internal/api"
	"pooled-raffle/internal/bank"
	"pooled-raffle/internal/chainclock"
	"pooled-raffle/internal/config"
	"pooled-raffle/internal/events"
	"pooled-raffle/internal/keeper"
	"pooled-raffle/internal/logger"
	"pooled-raffle/internal/metrics"
	"pooled-raffle/internal/raffle"
	"pooled-raffle/internal/recorder"
	"pooled-raffle/internal/service"
	"pooled-raffle/internal/tui"
	"pooled-raffle/internal/vrf"

	dbpkg "pooled-raffle/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()

	// With the dashboard on, logs go to a file so they don't tear the screen
	var logWriter io.Writer = os.Stderr
	if cfg.TUI {
		logFile, err := os.OpenFile("raffled.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			defer logFile.Close()
			logWriter = logFile
			fmt.Fprintf(os.Stderr, "Logs written to raffled.log\n")
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to open log file, logs will go to stderr (may interfere with TUI): %v\n", err)
		}
	}
	log := logger.NewWithWriter(cfg.Debug, logWriter)

	fmt.Printf("Raffle daemon starting...\n")
	fmt.Printf("Config loaded: %s\n", cfg.DebugString())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := events.NewHub()
	defer hub.Close()
	stats := metrics.New()

	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	var (
		ledger  bank.Ledger
		history api.History
	)
	if gormDB != nil {
		log.Printf("DB connected")
		if err := dbpkg.AutoMigrate(gormDB); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Printf("Migrations applied")

		rec := recorder.New(gormDB, log)
		history = rec
		ledger = bank.NewStore(gormDB)
		sub := hub.Subscribe(0)
		go func() {
			if err := rec.Run(ctx, sub); err != nil {
				log.Errorf("recorder stopped: %v", err)
			}
		}()
	} else {
		log.Printf("DATABASE_URL not provided – balances and history kept in memory")
		ledger = bank.NewMemory()
	}

	var clock raffle.Clock = raffle.SystemClock
	if cfg.RPCURL != "" {
		cc := chainclock.New(cfg, log)
		defer cc.Close()
		clock = cc
		go func() {
			if err := cc.Run(ctx); err != nil {
				log.Errorf("chain clock stopped: %v", err)
			}
		}()
	}

	seed := []byte(cfg.VRFSeed)
	if len(seed) == 0 {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			log.Fatalf("failed to generate vrf seed: %v", err)
		}
	}
	coord := vrf.NewCoordinator(vrf.Options{
		Seed:       seed,
		Delay:      cfg.VRFDelay,
		RetryDelay: cfg.VRFRetry,
		Logger:     log,
	})

	r, err := raffle.New(raffle.Config{
		EntranceFee: cfg.EntranceFee,
		Interval:    cfg.Interval,
		Randomness:  coord,
		Payout:      bank.Payer(ledger, cfg.RaffleAccount),
		Clock:       clock,
		Notifier:    raffle.Notifiers{hub, stats},
	})
	if err != nil {
		log.Fatalf("invalid raffle config: %v", err)
	}
	svc := service.New(service.Options{
		Raffle:    r,
		Bank:      ledger,
		Account:   cfg.RaffleAccount,
		Fulfiller: coord,
		Clock:     clock,
		Payouts:   stats,
		Logger:    log,
	})
	coord.SetConsumer(svc)

	go func() {
		if err := coord.Run(ctx); err != nil {
			log.Errorf("vrf coordinator stopped: %v", err)
		}
	}()
	go func() {
		if err := keeper.New(svc, clock, cfg.KeeperPoll, log).Run(ctx); err != nil {
			log.Errorf("keeper stopped: %v", err)
		}
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(api.Options{
			Service:    svc,
			Hub:        hub,
			History:    history,
			Metrics:    stats.Handler(),
			AdminToken: cfg.AdminToken,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
			cancel()
		}
	}()

	if cfg.TUI {
		sub := hub.Subscribe(0)
		go func() {
			if err := tui.Run(ctx, svc.State, sub); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			// TUI exited, cancel context to trigger shutdown
			cancel()
		}()
	}

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}

	_ = os.Stderr.Sync()
	_ = os.Stdout.Sync()
}
