// Command historyctl walks the activity history of one account and prints one
// JSON entry per line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mavryk-network/activity-history/internal/api"
	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/chain/ratelimit"
	"github.com/mavryk-network/activity-history/internal/chain/tzkt"
	"github.com/mavryk-network/activity-history/internal/config"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/loader"
	"github.com/mavryk-network/activity-history/internal/pipeline/pagination"
	"github.com/mavryk-network/activity-history/internal/pipeline/strategy"
)

type options struct {
	chain     string
	account   string
	asset     string
	pages     int
	limit     int
	allowZero bool
	verbose   bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("historyctl", flag.ContinueOnError)
	fs.StringVar(&opts.chain, "chain", "mainnet", "chain id or name")
	fs.StringVar(&opts.account, "account", "", "account address")
	fs.StringVar(&opts.asset, "asset", "", "asset slug (empty for all activity, tez for native)")
	fs.IntVar(&opts.pages, "pages", 1, "number of pages to load")
	fs.IntVar(&opts.limit, "limit", strategy.DefaultPseudoLimit, "page size")
	fs.BoolVar(&opts.allowZero, "allow-zero", false, "keep zero money diffs")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.account == "" {
		return opts, errors.New("-account is required")
	}
	if opts.pages <= 0 || opts.limit <= 0 {
		return opts, errors.New("-pages and -limit must be positive")
	}
	return opts, nil
}

func findChain(chains []config.ChainConfig, key string) (config.ChainConfig, bool) {
	for _, c := range chains {
		if c.ID == key || c.Name == key {
			return c, true
		}
	}
	return config.ChainConfig{}, false
}

// walk loads up to opts.pages pages and writes every new entry to out.
func walk(ctx context.Context, ctrl *pagination.Controller, opts options, out io.Writer) (int, error) {
	enc := json.NewEncoder(out)
	printed := 0
	flush := func() error {
		items := ctrl.Items()
		for _, item := range items[printed:] {
			if err := enc.Encode(api.ItemView(item, opts.allowZero)); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		printed = len(items)
		return nil
	}

	if err := ctrl.LoadInitial(ctx); err != nil {
		return printed, fmt.Errorf("load first page: %w", err)
	}
	if err := flush(); err != nil {
		return printed, err
	}
	for page := 1; page < opts.pages && !ctrl.ReachedTheEnd(); page++ {
		if err := ctrl.LoadMore(ctx, opts.limit); err != nil {
			return printed, fmt.Errorf("load page %d: %w", page+1, err)
		}
		if err := flush(); err != nil {
			return printed, err
		}
	}
	return printed, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	chainCfg, ok := findChain(cfg.Chains, opts.chain)
	if !ok {
		return fmt.Errorf("chain %s: %w", opts.chain, chain.ErrUnsupportedChain)
	}
	known := chainCfg.Known()
	scope, err := model.ParseAssetSlug(opts.asset, known.LiquidityContract)
	if err != nil {
		return err
	}

	registry := chain.NewRegistry()
	registry.Register(known.ID, tzkt.NewClient(chainCfg.IndexerURL, chainCfg.Label(), logger,
		tzkt.WithLimiter(ratelimit.NewLimiter(cfg.Indexer.RPS, cfg.Indexer.Burst, chainCfg.Label())),
		tzkt.WithRateLimitBackoff(cfg.Indexer.RateLimitBackoff),
		tzkt.WithRequestTimeout(cfg.Indexer.RequestTimeout),
	))

	ctrl := pagination.New(loader.New(registry, logger), pagination.Identity{
		ChainID: known.ID,
		Account: opts.account,
		Scope:   scope,
	}, logger, pagination.WithPageSize(opts.limit))

	n, err := walk(ctx, ctrl, opts, out)
	logger.Debug("history walk finished",
		"session_id", ctrl.SessionID(),
		"entries", n,
		"reached_the_end", ctrl.ReachedTheEnd(),
	)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "historyctl:", err)
		os.Exit(1)
	}
}
