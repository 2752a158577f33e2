package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonnyspicer/mango"

	"prophetagent/internal/config"
	"prophetagent/internal/db"
	"prophetagent/internal/execution"
	"prophetagent/internal/history"
	"prophetagent/internal/market"
	"prophetagent/internal/oracle"
	"prophetagent/internal/performance"
	"prophetagent/internal/scheduler"
	"prophetagent/internal/subgraph"
	"prophetagent/internal/trader"
)

func main() {
	configPath := "config.toml"
	if p := os.Getenv("PROPHET_CONFIG_PATH"); p != "" {
		configPath = p
	}

	agentName := flag.String("agent", "prophet_gpt3", "Agent variant to run")
	marketName := flag.String("market", "manifold", "Platform to trade on (manifold or omen)")
	flag.StringVar(&configPath, "config", configPath, "Path to the TOML config file")
	loop := flag.Bool("loop", false, "Keep running on the configured interval")
	dryRun := flag.Bool("dry-run", false, "Select, answer and size without placing bets")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Execution.DryRun = true
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.General.LogLevel)); err != nil {
		slog.Warn("invalid log level, using info", "log_level", cfg.General.LogLevel)
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	platform, err := market.ParsePlatform(*marketName)
	if err != nil {
		slog.Error("invalid market", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(platform.String()); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	variants := trader.DefaultVariants()
	for name, ac := range cfg.Agents {
		if err := variants.Override(name, ac.Model, ac.MaxMarketsPerRun); err != nil {
			slog.Error("invalid agent config", "error", err)
			os.Exit(1)
		}
	}
	variant, err := variants.Lookup(*agentName)
	if err != nil {
		slog.Error("invalid agent", "error", err)
		os.Exit(2)
	}

	slog.Info("prophetagent starting",
		"agent", variant.Name,
		"model", variant.Model,
		"platform", platform,
		"config", config.Redacted(cfg),
	)

	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database initialized", "path", cfg.General.DBPath)
	ledger := execution.NewLedger(database)

	deps, err := buildPlatform(cfg, platform, ledger)
	if err != nil {
		slog.Error("failed to initialize platform", "platform", platform, "error", err)
		os.Exit(1)
	}

	model := oracle.NewOpenAI(oracle.Options{
		APIKey:         cfg.Credentials().OpenAIAPIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          variant.Model,
		Timeout:        cfg.OpenAI.Timeout.Duration,
		RequestsPerSec: cfg.OpenAI.RequestsPerSec,
		MaxRetries:     cfg.OpenAI.MaxRetries,
	})

	agent := trader.NewAgent(variant, model, map[market.Platform]trader.HistoryProvider{
		platform: deps.history,
	})
	executor := execution.NewExecutor(map[market.Platform]execution.Placer{
		platform: deps.placer,
	}, ledger, cfg.Execution.DryRun)

	if platform == market.PlatformOmen && !cfg.Execution.DryRun {
		slog.Warn("omen bets cannot be placed by this agent; run with -dry-run to record decisions")
	}

	tracker := performance.NewTracker(database)
	sched := scheduler.New(agent, platform, deps.lister, executor, ledger, tracker, cfg.Schedule)

	// Graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *loop {
		err = sched.Run(ctx)
	} else {
		_, err = sched.RunOnce(ctx)
		if report, rerr := tracker.Generate(ctx); rerr == nil {
			performance.LogReport(report)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("agent run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("prophetagent stopped")
}

type platformDeps struct {
	lister  trader.MarketLister
	history trader.HistoryProvider
	placer  execution.Placer
}

// buildPlatform wires the listing, bet history and placement collaborators
// for platform. Ledger history is always merged in so dry runs do not bet on
// the same question twice in a row.
func buildPlatform(cfg *config.Config, platform market.Platform, ledger *execution.Ledger) (platformDeps, error) {
	creds := cfg.Credentials()
	cache := market.NewQuestionCache(cfg.Schedule.QuestionTTL.Duration)

	switch platform {
	case market.PlatformManifold:
		mc := newManifoldClient(nil, creds.ManifoldAPIKey)
		slog.Info("manifold client initialized")
		return platformDeps{
			lister:  market.NewManifoldLister(mc, cache),
			history: history.Union{history.NewManifold(mc, cache), ledger.History(platform)},
			placer:  execution.NewManifoldPlacer(mc),
		}, nil

	case market.PlatformOmen:
		address, err := creds.OmenAddress()
		if err != nil {
			return platformDeps{}, err
		}
		graph := subgraph.NewClient(cfg.Omen.SubgraphURL, cfg.Omen.SubgraphAPIKey, cfg.Omen.RequestsPerSec)
		slog.Info("omen subgraph client initialized",
			"url", cfg.Omen.SubgraphURL,
			"address", strings.ToLower(address.Hex()),
		)
		return platformDeps{
			lister:  market.NewOmenLister(graph),
			history: history.Union{history.NewOmen(graph, address), ledger.History(platform)},
			placer:  execution.OmenPlacer{},
		}, nil

	default:
		return platformDeps{}, fmt.Errorf("%w: %v", market.ErrUnknownPlatform, platform)
	}
}

// newManifoldClient builds a mango client bound to key. baseURL nil uses the
// public Manifold API.
func newManifoldClient(baseURL *string, key string) *mango.Client {
	return mango.ClientInstance(nil, baseURL, &key)
}
