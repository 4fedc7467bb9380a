package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/services"
	"github.com/ekaya-inc/ekaya-trane/pkg/workerpool"
)

type labelFlags struct {
	dataFlags
	problems string
	outDir   string
}

func newLabelCmd(a *app) *cobra.Command {
	f := &labelFlags{}
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Materialize label tables for a set of problems",
		Long: `label evaluates each problem over every entity's time windows and writes one
CSV per problem (<problem id>.csv) with the entity, cutoff_time and target columns.
Problems with unset thresholds fail individually; the others are still written.`,
		Example: `  ekaya-trane label --problems problems.json --data transactions.csv --out-dir labels/
  ekaya-trane label --problems problems.json --schema store.yaml --data data/ --table transactions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLabel(cmd, f)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.problems, "problems", "", "problems file written by generate")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "labels", "directory for the label CSV files")
	_ = cmd.MarkFlagRequired("problems")
	return cmd
}

func (a *app) runLabel(cmd *cobra.Command, f *labelFlags) error {
	start := time.Now()
	problems, err := readProblemsFile(f.problems)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		return fmt.Errorf("%s holds no problems", f.problems)
	}

	schema, err := f.readSchema()
	if err != nil {
		return err
	}
	if schema == nil {
		// problem documents carry the schema they were generated against
		schema = &metadata.Schema{Single: problems[0].Metadata}
	}
	ds, err := a.loadDataset(cmd.Context(), &f.dataFlags, schema)
	if err != nil {
		return err
	}

	pool := workerpool.New(workerpool.Config{MaxConcurrent: a.cfg.Labeling.MaxConcurrent}, a.logger)
	svc := services.NewLabelingService(pool, a.cfg.Labeling.Options(), a.logger)
	results := svc.LabelAll(cmd.Context(), problems, ds.Frame)

	paths, err := services.ExportLabels(f.outDir, results)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s\tFAILED\t%v\n", r.ProblemID, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d\t%s\n", r.ProblemID, r.Labels.Len(), r.Problem.Description())
	}

	a.logger.Info("Wrote label tables",
		zap.Int("written", len(paths)),
		zap.Int("failed", failed),
		zap.String("out_dir", f.outDir),
		zap.Duration("elapsed", time.Since(start)))
	if failed > 0 {
		return fmt.Errorf("%d of %d problems could not be labeled", failed, len(results))
	}
	return nil
}
