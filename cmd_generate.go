package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/generator"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
)

type generateFlags struct {
	dataFlags
	entity       string
	window       string
	thresholds   bool
	filters      []string
	transforms   []string
	aggregations []string
	out          string
}

func newGenerateCmd(a *app) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Enumerate the valid prediction problems of a schema",
		Example: `  ekaya-trane generate --schema schema.yaml --data transactions.csv --entity customer_id --window 48h
  ekaya-trane generate --schema store.yaml --data data/ --table transactions --entity customer_id --thresholds
  ekaya-trane generate --schema store.yaml --source postgres --table transactions --entity customer_id --thresholds`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, f)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.entity, "entity", "", "entity column problems predict for")
	cmd.Flags().StringVar(&f.window, "window", "", "prediction window, e.g. 48h or 2d (default from config)")
	cmd.Flags().BoolVar(&f.thresholds, "thresholds", false, "recommend filter thresholds from the data")
	cmd.Flags().StringSliceVar(&f.filters, "filters", nil, "filter classes to use (default all)")
	cmd.Flags().StringSliceVar(&f.transforms, "transformations", nil, "transformation classes to use (default all)")
	cmd.Flags().StringSliceVar(&f.aggregations, "aggregations", nil, "aggregation classes to use (default all)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write problems to this file instead of stdout")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f *generateFlags) error {
	start := time.Now()
	window, err := a.windowSize(f.window)
	if err != nil {
		return err
	}
	opts := generator.Options{
		TargetTable:        f.table,
		EntityColumn:       f.entity,
		WindowSize:         window,
		GenerateThresholds: f.thresholds || a.cfg.Generation.GenerateThresholds,
		Thresholds:         a.cfg.Generation.Thresholds(),
	}
	if opts.FilterOps, err = lookupClasses(f.filters); err != nil {
		return err
	}
	if opts.TransformationOps, err = lookupClasses(f.transforms); err != nil {
		return err
	}
	if opts.AggregationOps, err = lookupClasses(f.aggregations); err != nil {
		return err
	}

	schema, err := f.readSchema()
	if err != nil {
		return err
	}

	var gen *generator.Generator
	switch {
	case opts.GenerateThresholds || schema == nil:
		if !f.hasData() {
			return fmt.Errorf("--data or --source is required to infer the schema or thresholds")
		}
		ds, err := a.loadDataset(cmd.Context(), &f.dataFlags, schema)
		if err != nil {
			return err
		}
		opts.Frame = ds.Frame
		gen, err = generator.New(ds.Schema, opts, a.logger)
		if err != nil {
			return err
		}
	case schema.Multi != nil:
		if f.table == "" {
			return fmt.Errorf("--table is required with a multi-table schema")
		}
		gen, err = generator.NewMultiTable(schema.Multi, opts, a.logger)
		if err != nil {
			return err
		}
	default:
		gen, err = generator.New(schema.Single, opts, a.logger)
		if err != nil {
			return err
		}
	}

	problems := gen.Problems()

	w, closeOut, err := createOutput(cmd, f.out)
	if err != nil {
		return err
	}
	if err := writeProblems(w, problems); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	a.logger.Info("Generated problems",
		zap.Int("problems", len(problems)),
		zap.String("entity", f.entity),
		zap.Duration("window", window),
		zap.Bool("thresholds", opts.GenerateThresholds),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// windowSize parses the flag value, falling back to the configured window.
func (a *app) windowSize(flag string) (time.Duration, error) {
	if flag == "" {
		return a.cfg.Generation.Window()
	}
	return problem.ParseWindow(flag)
}

// lookupClasses resolves operator class names; no names means the generator defaults.
func lookupClasses(names []string) ([]*ops.Class, error) {
	if len(names) == 0 {
		return nil, nil
	}
	classes := make([]*ops.Class, 0, len(names))
	for _, name := range names {
		c, err := ops.Lookup(name)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}
