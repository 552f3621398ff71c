// Package cmd provides CLI command implementations for propfinder.
package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/propfinder-go/internal/backend"
	"github.com/Benny93/propfinder-go/internal/config"
	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/logger"
	"github.com/Benny93/propfinder-go/internal/metrics"
	"github.com/Benny93/propfinder-go/internal/server"
	"github.com/Benny93/propfinder-go/internal/storage"
	"github.com/Benny93/propfinder-go/internal/watch"
	"github.com/Benny93/propfinder-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// Globals are the flags shared by every command. Set flags override the
// loaded configuration.
type Globals struct {
	Config   string `short:"c" type:"path" env:"PROPFINDER_CONFIG" help:"Path to a YAML config file"`
	LogLevel string `help:"Log level (debug|info|warn|error)"`
	DataDir  string `type:"path" help:"Directory holding the data files"`
	Backend  string `help:"Search backend base URL"`

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (g *Globals) in() io.Reader {
	if g.stdin == nil {
		return os.Stdin
	}
	return g.stdin
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *Globals) errOut() io.Writer {
	if g.stderr == nil {
		return os.Stderr
	}
	return g.stderr
}

// load reads the configuration, applies flag overrides and builds the
// logger. Logs always go to stderr so stdout stays free for results and
// the MCP transport.
func (g *Globals) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.DataDir != "" {
		cfg.Data.Dir = g.DataDir
	}
	if g.Backend != "" {
		cfg.Backend.BaseURL = g.Backend
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, g.errOut())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// ServeCmd starts the HTTP search API.
type ServeCmd struct {
	Host  string `help:"Listen host (overrides config)"`
	Port  int    `short:"p" help:"Listen port (overrides config)"`
	Watch bool   `short:"w" help:"Reload the dataset when its files change"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Watch {
		cfg.Watch.Enabled = true
	}

	m := metrics.New()
	a, err := newApp(cfg, log, m)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch.Enabled {
		stop, err := startWatcher(ctx, cfg, a)
		if err != nil {
			return err
		}
		defer stop()
	}

	server.Version = Version
	srv := server.New(cfg, a.finder, m, log)
	srv.Setup()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-osSignalChannel():
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

// SearchCmd runs one search and prints the results.
type SearchCmd struct {
	Label      string   `arg:"" help:"Free-text description of the sought property"`
	DataType   string   `short:"t" help:"Restrict to a value type or alias (e.g. time, quantity, item)"`
	Scope      string   `short:"s" enum:"qualifier,value,both" default:"both" help:"Intended use (qualifier|value|both)"`
	NoFilter   bool     `help:"Skip the constraint filter"`
	Constraint string   `help:"Main property whose qualifier constraints apply"`
	Other      []string `sep:"," help:"Properties already used alongside the sought one"`
	Size       int      `short:"n" default:"10" help:"Maximum results"`
	Extra      bool     `short:"x" help:"Show labels, aliases, usage and score"`
	JSON       bool     `help:"Print results as JSON"`
	Tiers      bool     `help:"Print the candidate count per tier instead of ranked results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if c.Tiers {
		set, err := a.finder.Candidates(context.Background(), c.params())
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		printTiers(g.out(), set)
		return nil
	}

	results, err := a.finder.Find(context.Background(), c.params())
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if c.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(g.out(), results, c.Extra)
	return nil
}

func (c *SearchCmd) params() finder.Params {
	return finder.Params{
		Label:           c.Label,
		DataType:        c.DataType,
		Scope:           c.Scope,
		Filter:          !c.NoFilter,
		Constraint:      c.Constraint,
		OtherProperties: c.Other,
		Size:            c.Size,
		ExtraInfo:       c.Extra,
	}
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Watch bool `short:"w" help:"Reload the dataset when its files change"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Watch || cfg.Watch.Enabled {
		stopWatch, err := startWatcher(ctx, cfg, a)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	// Note: stdout carries JSON-RPC only; logs go to stderr
	err = mcp.NewServer(a.finder, Version, nil, log).Run(ctx, g.in(), g.out())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CheckCmd loads every data file and reports the store sizes.
type CheckCmd struct {
	Probe bool `help:"Also probe the search backend"`
}

// Run executes the check command.
func (c *CheckCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}

	snap, err := dataset.Load(cfg.Data, log)
	if err != nil {
		return err
	}

	w := g.out()
	color.New(color.FgGreen).Fprintf(w, "✓ Dataset loaded from %s\n", cfg.Data.Dir)
	stats := snap.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k+":", stats[k])
	}
	fmt.Fprintf(w, "  %-16s %t\n", "word_split:", snap.Splitter.HasDictionary())

	if !c.Probe {
		return nil
	}
	if err := backend.NewClient(cfg.Backend, log, nil).Probe(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(w, "✗ Backend %s is down\n", cfg.Backend.BaseURL)
		return err
	}
	color.New(color.FgGreen).Fprintf(w, "✓ Backend %s is up\n", cfg.Backend.BaseURL)
	return nil
}

// CacheCmd groups the search cache commands.
type CacheCmd struct {
	Stats CacheStatsCmd `cmd:"" help:"Show search cache size"`
	Clear CacheClearCmd `cmd:"" help:"Delete every cached search"`
}

// CacheStatsCmd reports the badger cache size.
type CacheStatsCmd struct{}

// Run executes the cache stats command.
func (c *CacheStatsCmd) Run(g *Globals) error {
	cache, err := openPersistentCache(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	stats, err := cache.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}
	fmt.Fprintf(g.out(), "Entries:  %d\n", stats.Entries)
	fmt.Fprintf(g.out(), "Size:     %d bytes\n", stats.SizeBytes)
	return nil
}

// CacheClearCmd deletes every cached search.
type CacheClearCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the cache clear command.
func (c *CacheClearCmd) Run(g *Globals) error {
	cache, err := openPersistentCache(g, false)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if !c.Force {
		fmt.Fprint(g.out(), "Delete every cached search? [y/N] ")
		response, _ := bufio.NewReader(g.in()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.out(), "Aborted")
			return nil
		}
	}

	n, err := cache.Clear(context.Background())
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	color.New(color.FgGreen).Fprintf(g.out(), "Removed %d cached searches\n", n)
	return nil
}

// SetupCmd prints or writes an MCP client configuration for propfinder.
type SetupCmd struct {
	Output string `short:"o" type:"path" help:"Write the configuration to this file instead of stdout"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	content, err := json.MarshalIndent(mcpClientConfig(g.Config), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	content = append(content, '\n')

	if c.Output == "" {
		_, err := g.out().Write(content)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Output), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(c.Output, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	color.New(color.FgGreen).Fprintf(g.out(), "✓ Wrote MCP config to %s\n", c.Output)
	return nil
}

func mcpClientConfig(configPath string) map[string]any {
	args := []string{"mcp"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"propfinder": map[string]any{
				"command": "propfinder",
				"args":    args,
			},
		},
	}
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// startWatcher reloads a's dataset on file changes until ctx is cancelled.
// The returned function stops the watcher.
func startWatcher(ctx context.Context, cfg *config.Config, a *app) (func(), error) {
	w, err := watch.New(cfg.Data, watch.Options{
		Debounce: cfg.Watch.Debounce,
		Ignore:   cfg.Watch.Ignore,
	}, a.finder, a.metrics, a.log)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("watch stopped", "error", err)
		}
	}()
	return func() { _ = w.Close() }, nil
}

// openPersistentCache opens the configured badger cache. The in-memory
// cache lives only inside a running process, so it cannot be managed here.
func openPersistentCache(g *Globals, readOnly bool) (storage.Cache, error) {
	cfg, _, err := g.load()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		return nil, errors.New("cache.dir is not set; only a persistent cache can be managed")
	}
	return openCache(cfg.Cache, readOnly)
}

func printResults(w io.Writer, results []finder.Result, extra bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found")
		return
	}

	id := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for i, r := range results {
		fmt.Fprintf(w, "%2d. %s %s\n", i+1, id(r.QNode), dim("(tier "+r.Tier.String()+")"))
		if len(r.Description) > 0 {
			fmt.Fprintf(w, "    %s\n", r.Description[0])
		}
		if extra && r.Details != nil {
			fmt.Fprintf(w, "    Label:      %s\n", strings.Join(r.Label, ", "))
			if len(r.Alias) > 0 {
				fmt.Fprintf(w, "    Alias:      %s\n", strings.Join(r.Alias, ", "))
			}
			fmt.Fprintf(w, "    Type:       %s\n", r.DataType)
			fmt.Fprintf(w, "    Statements: %d\n", r.Statements)
			fmt.Fprintf(w, "    Score:      %.3f\n", r.Score)
		}
	}
}

func printTiers(w io.Writer, set *finder.CandidateSet) {
	sizes := set.TierSizes()
	for _, t := range graph.Tiers {
		fmt.Fprintf(w, "Tier %s: %d\n", t, sizes[t])
	}
	fmt.Fprintf(w, "Total:  %d\n", set.Len())
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Serve  ServeCmd  `cmd:"" help:"Start the HTTP search API"`
	Search SearchCmd `cmd:"" help:"Find properties matching a label"`
	MCP    MCPCmd    `cmd:"" help:"Start MCP server (stdio transport)"`
	Check  CheckCmd  `cmd:"" help:"Load the dataset and report its size"`
	Cache  CacheCmd  `cmd:"" help:"Manage the search cache"`
	Setup  SetupCmd  `cmd:"" help:"Print an MCP client configuration"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("propfinder"),
		kong.Description("Find knowledge-graph properties from free-text labels"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(&c.Globals)
}
