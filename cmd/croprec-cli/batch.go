package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agroassist/croprec/croprec"
)

type batchOptions struct {
	inputPath string
	columns   []string
	output    string
	outputDir string
	stdout    bool
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Predict every row of a CSV or TSV file of measurements",
		Long: `Each data row must carry the seven measurements. Header names are matched
case-insensitively; use --column Field=Header or Field=#N to map a column
explicitly. Rows that fail validation are reported in the output and skipped.`,
		Example: "  croprec-cli batch --input samples.csv --column ph=#6 --output results.csv",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "CSV/TSV file with one set of measurements per row")
	cmd.Flags().StringArrayVar(&opts.columns, "column", nil, "Column override as Field=Header or Field=#N (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV file to write results (default uses --output-dir/result_*.csv)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "csv", "Directory where result CSVs are written when --output is omitted")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Print a summary of each row to stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *batchOptions) error {
	columns, err := parseColumnFlags(opts.columns)
	if err != nil {
		return err
	}
	rows, err := croprec.ParseBatchFile(strings.TrimSpace(opts.inputPath), croprec.BatchOptions{Columns: columns})
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("input file does not contain any rows")
	}

	out := cmd.OutOrStdout()
	progress := func(res croprec.BatchResult) {
		if opts.stdout {
			printBatchRow(out, res)
		}
	}
	results, runErr := croprec.RunBatch(cmd.Context(), root.client(), rows, root.logger, progress)

	outputPath, err := resolveOutputPath(strings.TrimSpace(opts.output), strings.TrimSpace(opts.outputDir))
	if err != nil {
		return err
	}
	if err := writeBatchFile(outputPath, results); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	root.logger.Info("batch finished",
		zap.Int("rows", len(rows)),
		zap.Int("processed", len(results)),
		zap.Int("failed", failed),
		zap.String("output", outputPath))
	fmt.Fprintf(out, "Predicted %d of %d rows (%d failed); results saved to %s\n",
		len(results)-failed, len(rows), failed, outputPath)
	if runErr != nil {
		return fmt.Errorf("batch interrupted: %w", runErr)
	}
	return nil
}

func writeBatchFile(path string, results []croprec.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := croprec.WriteBatchCSV(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}
	return nil
}

func printBatchRow(w io.Writer, res croprec.BatchResult) {
	if res.Err != nil {
		fmt.Fprintf(w, "line %d: error: %v\n", res.Row.Line, res.Err)
		return
	}
	if res.Prediction == nil || len(res.Prediction.Crops) == 0 {
		fmt.Fprintf(w, "line %d: no recommendations\n", res.Row.Line)
		return
	}
	fmt.Fprintf(w, "line %d: %s\n", res.Row.Line, res.Prediction.Crops[0].Label())
}

// parseColumnFlags turns Field=Column pairs into batch options. The field is
// matched against both the label and the wire key, ignoring case.
func parseColumnFlags(values []string) (map[croprec.Field]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[croprec.Field]string, len(values))
	for _, v := range values {
		name, column, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("--column %q: want Field=Header or Field=#N", v)
		}
		field, ok := lookupField(name)
		if !ok {
			return nil, fmt.Errorf("--column %q: %w", v, croprec.ErrUnknownField)
		}
		out[field] = strings.TrimSpace(column)
	}
	return out, nil
}

func lookupField(name string) (croprec.Field, bool) {
	name = strings.TrimSpace(name)
	for _, field := range croprec.Fields {
		if strings.EqualFold(name, field.Label()) || strings.EqualFold(name, string(field)) {
			return field, true
		}
	}
	return "", false
}
