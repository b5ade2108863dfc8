package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/audit/stdout"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/pipeline"
)

var (
	batchWorkers int
	batchSource  string
)

var batchCmd = &cobra.Command{
	Use:   "batch [submissions.ndjson]",
	Short: "Screen newline-delimited JSON submissions",
	Long: `Reads one submission per line from the named file, or stdin, and writes an
audit record for each verdict to the configured audit sinks. With no sinks
configured, records go to stdout as NDJSON. Invalid lines are logged and
counted without stopping the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "concurrent submissions")
	batchCmd.Flags().StringVar(&batchSource, "source", "batch", "source tag stored on audit records")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx := cmd.Context()
	svc, err := loadService(ctx, cfg.Model)
	if err != nil {
		return err
	}
	defer svc.Close()

	var sink audit.Sink
	if len(cfg.Audit.Sinks) == 0 {
		v, err := audit.ParseVerbosity(cfg.Audit.Verbosity)
		if err != nil {
			return err
		}
		sink = stdout.NewWriter(cmd.OutOrStdout(), v, false)
	} else if sink, err = openAudit(ctx, cfg.Audit, false); err != nil {
		return err
	}
	defer sink.Close()

	p := pipeline.New(svc, sink, pipeline.WithWorkers(batchWorkers), pipeline.WithSource(batchSource))
	sum, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	slog.Info("batch complete",
		"processed", sum.Processed,
		"rejected", sum.Rejected,
		"high", sum.ByRisk[model.RiskHigh],
		"medium", sum.ByRisk[model.RiskMedium],
		"low", sum.ByRisk[model.RiskLow],
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "screener: %d processed, %d rejected\n", sum.Processed, sum.Rejected)
	return nil
}
