package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fmsel "github.com/omarkazmi/FiniteMutSel"
)

var (
	configPath string
	cfg        = fmsel.DefaultConfig()

	rootCmd = &cobra.Command{
		Use:           "fmsel",
		Short:         "Finite mixture of site profiles sampled by MCMC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	runCmd = &cobra.Command{
		Use:   "run [name]",
		Short: "Start a new chain",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runChain,
	}
	resumeCmd = &cobra.Command{
		Use:   "resume [name]",
		Short: "Restart a chain from its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeChain,
	}
	catalogsCmd = &cobra.Command{
		Use:   "catalogs",
		Short: "List the built-in empirical mixtures",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range fmsel.CatalogNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML run file")
	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		f := c.Flags()
		f.StringVarP(&cfg.Data, "data", "d", "", "alignment (FASTA or PHYLIP)")
		f.StringVarP(&cfg.Tree, "tree", "T", "", "newick tree or file holding one")
		f.StringVar(&cfg.Alphabet, "alphabet", cfg.Alphabet, "state symbols in column order")
		f.IntVar(&cfg.NCat, "ncat", cfg.NCat, "starting number of components (-1: one per site)")
		f.IntVar(&cfg.KMax, "kmax", cfg.KMax, "maximum number of components (0: one per site; never below ncat)")
		f.BoolVar(&cfg.FixNcomp, "fixncomp", cfg.FixNcomp, "keep the number of components fixed")
		f.StringVar(&cfg.MixType, "catfix", "", "empirical mixture to use as fixed components")
		f.StringVar(&cfg.CatalogDir, "catalogdir", "", "directory searched for empirical mixture files")
		f.BoolVar(&cfg.FixTopo, "fixtopo", cfg.FixTopo, "keep the topology fixed")
		f.BoolVar(&cfg.FixBL, "fixbl", cfg.FixBL, "keep branch lengths fixed")
		f.BoolVar(&cfg.DC, "dc", cfg.DC, "delete constant columns")
		f.IntVar(&cfg.NProcs, "np", cfg.NProcs, "number of ranks, master included")
		f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
		f.IntVarP(&cfg.Every, "every", "x", cfg.Every, "sweeps between two saved points")
		f.IntVar(&cfg.Until, "until", cfg.Until, "stop after this many sweeps (-1: never)")
		f.Float64Var(&cfg.Tuning, "tuning", cfg.Tuning, "proposal tuning")
		f.StringVar(&cfg.OutDir, "outdir", cfg.OutDir, "output directory")
		f.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "debug, info, warn or error")
		f.BoolVar(&cfg.Development, "dev", cfg.Development, "human readable logs")
		f.StringVar(&cfg.MetricsAddr, "metrics", "", "serve prometheus metrics on this address")
		f.StringVar(&cfg.TraceDB, "tracedb", "", "also store the trace in this sqlite database")
	}
	rootCmd.AddCommand(runCmd, resumeCmd, catalogsCmd)
}

//overrides copies a flag value from cfg into a config read from file
var overrides = map[string]func(*fmsel.Config){
	"data":       func(c *fmsel.Config) { c.Data = cfg.Data },
	"tree":       func(c *fmsel.Config) { c.Tree = cfg.Tree },
	"alphabet":   func(c *fmsel.Config) { c.Alphabet = cfg.Alphabet },
	"ncat":       func(c *fmsel.Config) { c.NCat = cfg.NCat },
	"kmax":       func(c *fmsel.Config) { c.KMax = cfg.KMax },
	"fixncomp":   func(c *fmsel.Config) { c.FixNcomp = cfg.FixNcomp },
	"catfix":     func(c *fmsel.Config) { c.MixType = cfg.MixType },
	"catalogdir": func(c *fmsel.Config) { c.CatalogDir = cfg.CatalogDir },
	"fixtopo":    func(c *fmsel.Config) { c.FixTopo = cfg.FixTopo },
	"fixbl":      func(c *fmsel.Config) { c.FixBL = cfg.FixBL },
	"dc":         func(c *fmsel.Config) { c.DC = cfg.DC },
	"np":         func(c *fmsel.Config) { c.NProcs = cfg.NProcs },
	"seed":       func(c *fmsel.Config) { c.Seed = cfg.Seed },
	"every":      func(c *fmsel.Config) { c.Every = cfg.Every },
	"until":      func(c *fmsel.Config) { c.Until = cfg.Until },
	"tuning":     func(c *fmsel.Config) { c.Tuning = cfg.Tuning },
	"outdir":     func(c *fmsel.Config) { c.OutDir = cfg.OutDir },
	"loglevel":   func(c *fmsel.Config) { c.LogLevel = cfg.LogLevel },
	"dev":        func(c *fmsel.Config) { c.Development = cfg.Development },
	"metrics":    func(c *fmsel.Config) { c.MetricsAddr = cfg.MetricsAddr },
	"tracedb":    func(c *fmsel.Config) { c.TraceDB = cfg.TraceDB },
}

//settings merges the run file with the flags that were explicitly set
func settings(cmd *cobra.Command, args []string) (fmsel.Config, error) {
	file, err := fmsel.LoadConfig(configPath)
	if err != nil {
		return file, err
	}
	for name, set := range overrides {
		if cmd.Flags().Changed(name) {
			set(&file)
		}
	}
	if len(args) > 0 {
		file.Name = args[0]
	}
	if file.MixType != "" {
		file.EmpMix = true
	}
	return file, nil
}

func setup(cmd *cobra.Command, args []string) (fmsel.Config, *zap.Logger, *prometheus.Registry, error) {
	c, err := settings(cmd, args)
	if err != nil {
		return c, nil, nil, err
	}
	logger, err := fmsel.NewLogger(c.LogLevel, c.Development)
	if err != nil {
		return c, nil, nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return c, logger, reg, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func drive(cmd *cobra.Command, args []string, open func(context.Context, fmsel.Config, *zap.Logger, prometheus.Registerer) (*fmsel.Chain, error)) error {
	c, logger, reg, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer logger.Sync()
	stop := serveMetrics(c.MetricsAddr, reg, logger)
	defer stop()
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	chain, err := open(ctx, c, logger, reg)
	if err != nil {
		return err
	}
	runErr := chain.Run(ctx)
	return errors.Join(runErr, chain.Close())
}

func runChain(cmd *cobra.Command, args []string) error {
	return drive(cmd, args, fmsel.NewChain)
}

func resumeChain(cmd *cobra.Command, args []string) error {
	return drive(cmd, args, fmsel.ResumeChain)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fmsel:", err)
		if fmsel.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
