package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/validate"
)

var predictCmd = &cobra.Command{
	Use:   "predict [submission.json]",
	Short: "Screen one JSON submission and print the verdict",
	Long:  "Reads one submission from the named file, or from stdin when no file is given,\nand prints the verdict as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	body, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	sub, err := validate.Decode(body)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := loadService(ctx, cfg.Model)
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := svc.Evaluate(ctx, sub)
	if err != nil {
		return err
	}

	sink, err := openAudit(ctx, cfg.Audit, false)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.Write(ctx, audit.NewRecord("cli", svc.ClassifierName(), out.Features, out.Verdict)); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out.Verdict)
}

// readInput returns the contents of args[0], or of stdin when no path is given.
func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}
	return data, nil
}
