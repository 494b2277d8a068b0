package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"arbitrage/internal/bot"
	"arbitrage/internal/config"
	"arbitrage/internal/finder"
	"arbitrage/internal/models"
	"arbitrage/internal/repository"
	"arbitrage/internal/runner"
	"arbitrage/internal/schedule"
	"arbitrage/internal/venue"
	"arbitrage/pkg/utils"
)

func main() {
	args := os.Args[1:]
	subcommand := ""
	if len(args) > 0 && args[0] == "qa" {
		subcommand = "qa"
		args = args[1:]
	}

	fs := flag.NewFlagSet("arbitrage", flag.ExitOnError)
	paperMode := fs.Bool("paper", false, "run against simulated wallets instead of live venue credentials")
	yamlPath := fs.String("config", "", "optional path to a non-secret YAML tuning overlay")
	fs.Parse(args)

	cfg, err := config.Load(*yamlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer log.Sync()

	if subcommand == "qa" {
		if err := runQA(cfg, log.Logger); err != nil {
			log.Error("arbitrage: qa failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log.Logger, *paperMode); err != nil {
		log.Error("arbitrage: fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, paperMode bool) error {
	db, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := repository.EnsureSchema(db, log); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	opportunityRepo := repository.NewOpportunityRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)

	venueA, err := newVenueA(cfg, log)
	if err != nil {
		return fmt.Errorf("venue-a client: %w", err)
	}
	venueB, err := newVenueB(cfg, log)
	if err != nil {
		return fmt.Errorf("venue-b client: %w", err)
	}

	var scheduler finder.ScheduleValidator
	if cfg.Schedule.BaseURL != "" {
		scheduler = schedule.NewValidator(cfg.Schedule, log)
	}
	finderEngine := finder.NewFinder(cfg.Finder, scheduler, log)

	var (
		execImpl  executor
		paperExec *bot.PaperExecutor
	)
	if paperMode {
		paperExec = bot.NewPaperExecutor(venueA, venueB, cfg.Sizing, execConfig(), paperConfig(), log)
		execImpl = paperExec
		log.Info("arbitrage: running in paper mode against simulated wallets")
	} else if !cfg.HasVenueACredentials() || !cfg.HasVenueBCredentials() {
		log.Warn("arbitrage: missing live credentials for one or both venues, running scan-only (no executor)")
	} else {
		execImpl = bot.NewExecutor(venueA, venueB, cfg.Sizing, execConfig(), log)
	}

	runnerCfg := cfg.Runner
	runnerCfg.MatcherCfg = cfg.Matcher
	runnerCfg.FinderCfg = cfg.Finder
	runnerCfg.SizingCfg = cfg.Sizing

	r, err := runner.NewRunner(runnerCfg, runner.Deps{
		VenueA:          venueA,
		VenueB:          venueB,
		Finder:          finderEngine,
		Executor:        execImpl,
		OpportunityRepo: opportunityRepo,
		TradeRepo:       tradeRepo,
		BlacklistRepo:   blacklistRepo,
		Log:             log,
	})
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("arbitrage: shutdown signal received")
		cancel()
	}()

	if runnerCfg.OpsListenAddr != "" {
		opsServer := &http.Server{
			Addr:    runnerCfg.OpsListenAddr,
			Handler: runner.NewOpsServer(r, log).Handler(),
		}
		go func() {
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("arbitrage: ops server stopped", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = opsServer.Shutdown(shutdownCtx)
		}()
		log.Info("arbitrage: ops server listening", zap.String("addr", runnerCfg.OpsListenAddr))
	}

	runErr := r.Run(ctx)

	if paperExec != nil {
		report := paperExec.Report()
		fmt.Println(report.String())
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// executor mirrors runner.Deps.Executor's (unexported) method set so
// execImpl can hold a live *bot.Executor, a *bot.PaperExecutor, or stay nil
// for scan-only mode; Go's structural typing satisfies runner.Deps.Executor
// without needing to name that type.
type executor interface {
	Execute(ctx context.Context, op *models.Opportunity) models.ExecutionResult
}

func newVenueA(cfg *config.Config, log *zap.Logger) (venue.Client, error) {
	return venue.NewVenueA(cfg.VenueA, log), nil
}

// newVenueB always wires the public Gamma catalog client, since listing
// markets and reading order books needs no credentials. The CLOB client is
// only authenticated when a signing key is configured; without one the
// venue stays in read-only scan mode (order placement will fail, which is
// fine because the caller also leaves the executor nil in that case).
func newVenueB(cfg *config.Config, log *zap.Logger) (venue.Client, error) {
	sdkClient := polymarket.NewClient()

	if cfg.VenueB.PrivateKeyHex == "" {
		return venue.NewVenueB(cfg.VenueB, sdkClient.Gamma, sdkClient.CLOB, nil, log), nil
	}

	signer, err := auth.NewPrivateKeySigner(cfg.VenueB.PrivateKeyHex, 137)
	if err != nil {
		return nil, fmt.Errorf("venue-b signer: %w", err)
	}
	apiKey := &auth.APIKey{
		Key:        cfg.VenueB.APIKey,
		Secret:     cfg.VenueB.APISecret,
		Passphrase: cfg.VenueB.APIPassphrase,
	}
	clobClient := sdkClient.CLOB.WithAuth(signer, apiKey)

	return venue.NewVenueB(cfg.VenueB, sdkClient.Gamma, clobClient, signer, log), nil
}

func openDatabase(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func execConfig() bot.ExecutorConfig {
	return bot.ExecutorConfig{}
}

func paperConfig() bot.PaperConfig {
	return bot.PaperConfig{}
}
