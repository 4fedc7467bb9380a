package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-trane/pkg/config"
)

// app carries state shared by every command once the root pre-run has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ekaya-trane",
		Short: "Enumerate and label prediction problems over time-stamped tables",
		Long: `ekaya-trane enumerates every valid prediction problem a schema supports
(filter, transformation, aggregation over a time window per entity), recommends
thresholds from the data and materializes label tables for training.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(
		newGenerateCmd(a),
		newLabelCmd(a),
		newDescribeCmd(),
		newSourcesCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, Version)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("window_size", cfg.Generation.WindowSize))
	return nil
}

// newLogger builds a JSON logger in production and a console logger elsewhere, both
// writing to stderr so command output stays clean.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Env == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
