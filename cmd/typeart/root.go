package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/typeart-runtime/catalog"
	"github.com/wippyai/typeart-runtime/runtime"
	"github.com/wippyai/typeart-runtime/typedb"
	"github.com/wippyai/typeart-runtime/wasmhost"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "typeart",
	Short: "Inspect type catalogs and replay allocation traces",
	Long: `typeart works with the type catalogs consumed by the allocation tracker.

Commands:
  check     Validate a catalog
  describe  Print the layout of one type
  resolve   Resolve an offset inside an allocation
  replay    Run an allocation trace against a catalog
  browse    Explore a catalog interactively
  export    Convert a catalog to another format
  version   Print the version
`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "runtime configuration file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(CheckCmd, DescribeCmd, ResolveCmd, ReplayCmd, BrowseCmd, ExportCmd, VersionCmd)
}

// setup reads the configuration and builds the logger shared by every
// package.
func setup() (runtime.Options, *zap.Logger, error) {
	opts := runtime.DefaultOptions()
	level := zapcore.WarnLevel
	if configPath != "" {
		cfg, err := runtime.LoadConfig(configPath)
		if err != nil {
			return opts, nil, err
		}
		cfg.Apply(&opts)
		if cfg.LogLevel != "" {
			level = cfg.Level()
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true
	log, err := zcfg.Build()
	if err != nil {
		return opts, nil, err
	}
	typedb.SetLogger(log.Named("typedb"))
	wasmhost.SetLogger(log.Named("wasmhost"))
	opts.Logger = log
	return opts, log, nil
}

// openRuntime creates a runtime with the catalog at path loaded.
func openRuntime(ctx context.Context, path string) (*runtime.Runtime, error) {
	opts, _, err := setup()
	if err != nil {
		return nil, err
	}
	rt := runtime.New(opts)
	if err := rt.LoadTypes(ctx, catalog.Open(path)); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
