package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/contactkeval/option-mc/internal/config"
	"github.com/contactkeval/option-mc/internal/data"
	"github.com/contactkeval/option-mc/internal/engine"
	"github.com/contactkeval/option-mc/internal/logger"
	"github.com/contactkeval/option-mc/internal/report"
	"github.com/contactkeval/option-mc/internal/server"
)

var (
	v          = viper.New()
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "option-mc",
	Short:         "Monte Carlo option pricer for the CEV model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "price the configured option and print the estimates",
	RunE:  runPrice,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve POST /price, GET /health and GET /metrics",
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a YAML/JSON config file")
	pf.Int("verbosity", 1, "0=errors, 1=info, 2=debug, 3=trace")
	pf.BoolVar(&debug, "debug", false, "shorthand for --verbosity 2")
	bindFlags(pf, "verbosity")

	f := priceCmd.Flags()
	f.Int("paths", 0, "number of simulated paths")
	f.Int("steps", 0, "number of time steps per path")
	f.Uint64("seed", 0, "base seed, 0 seeds from the clock")
	f.Int("trials", 0, "number of repetitions")
	f.Int("workers", 0, "worker goroutines, 0 uses GOMAXPROCS")
	f.Bool("json", false, "print JSON instead of a table")
	f.Bool("progress", false, "show a progress bar on stderr")
	bindFlags(f, "paths", "steps", "seed", "trials", "workers")

	serveCmd.Flags().String("addr", "", "listen address, e.g. :8080")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(priceCmd, serveCmd)
}

// bindFlags binds flags to the config keys of the same name.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func main() {
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	if debug && cfg.Verbosity < int(logger.Debug) {
		cfg.Verbosity = int(logger.Debug)
	}
	logger.SetVerbosity(cfg.Verbosity)
	return cfg, nil
}

// spotProvider chains the local spots file, Massive and the synthetic
// provider, skipping whatever is not configured.
func spotProvider(cfg *config.Config) data.SpotProvider {
	var remote data.SpotProvider
	if cfg.Massive.APIKey != "" {
		remote = data.NewMassiveProvider(cfg.Massive.APIKey, cfg.Massive.BaseURL)
	} else {
		if cfg.Ticker != "" && cfg.Spot == 0 && cfg.SpotsFile == "" {
			logger.Warnf("no Massive API key, using a synthetic spot for %s", cfg.Ticker)
		}
		remote = data.NewSyntheticProvider(cfg.Seed)
	}
	if cfg.SpotsFile == "" {
		return remote
	}
	return data.WithSecondary(data.NewCSVProvider(cfg.SpotsFile), remote)
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine(cfg, spotProvider(cfg))
	showProgress, _ := cmd.Flags().GetBool("progress")
	var bars *progressBars
	if showProgress {
		bars = &progressBars{}
		eng.OnProgress(bars.update)
	}

	start := time.Now()
	results, err := eng.Run(ctx)
	if bars != nil {
		bars.finish()
	}
	if err != nil {
		return err
	}
	logger.Infof("finished %d run(s) in %v", len(results), time.Since(start))

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return report.WriteJSON(os.Stdout, results)
	}
	return report.WriteTable(os.Stdout, results)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(cfg, spotProvider(cfg)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting REST server on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("REST server: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down REST server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// progressBars shows one bar per run of the plan; runs execute one after
// another, so a new trial index closes the previous bar.
type progressBars struct {
	mu    sync.Mutex
	trial int
	bar   *pb.ProgressBar
}

func (p *progressBars) update(trial, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || trial != p.trial {
		if p.bar != nil {
			p.bar.Finish()
		}
		p.trial = trial
		p.bar = pb.New(total).SetWriter(os.Stderr).Start()
	}
	if int64(done) > p.bar.Current() {
		p.bar.SetCurrent(int64(done))
	}
}

func (p *progressBars) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
