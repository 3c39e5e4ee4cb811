package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agroassist/croprec/croprec"
)

const (
	formatText     = "text"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

type predictOptions struct {
	values  map[croprec.Field]*string
	selects []string
	save    bool
	format  string
	output  string
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{values: make(map[croprec.Field]*string, len(croprec.Fields))}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Request crop recommendations for one set of measurements",
		Example: `  croprec-cli predict --nitrogen 90 --phosphorus 42 --potassium 43 \
    --temperature 20.8 --humidity 82 --ph 6.5 --rainfall 202.9 --select rice --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, root, opts)
		},
	}
	for _, field := range croprec.Fields {
		opts.values[field] = cmd.Flags().String(flagName(field), "", field.Label()+" measurement")
	}
	cmd.Flags().StringArrayVar(&opts.selects, "select", nil, "Crop to select from the recommendations (repeatable)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Persist the selection after predicting")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, csv or markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	return cmd
}

// flagName is the lower-cased label, so the misspelt wire key never shows up
// on the command line.
func flagName(field croprec.Field) string {
	return strings.ToLower(field.Label())
}

func runPredict(cmd *cobra.Command, root *rootOptions, opts *predictOptions) error {
	write, err := reportWriter(opts.format)
	if err != nil {
		return err
	}
	session, err := root.session()
	if err != nil {
		return err
	}
	for _, field := range croprec.Fields {
		value := strings.TrimSpace(*opts.values[field])
		if err := croprec.ValidateMeasurement(value); err != nil {
			return fmt.Errorf("--%s: %w", flagName(field), err)
		}
		if err := session.SetField(field, value); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if err := session.Predict(ctx); err != nil {
		return fmt.Errorf("%s: %w", session.Status(), err)
	}

	snap := session.Snapshot()
	for _, crop := range opts.selects {
		crop = strings.TrimSpace(crop)
		if !hasCrop(snap.Results, crop) {
			return fmt.Errorf("--select %q: not among the recommendations", crop)
		}
		if !snap.IsSelected(crop) {
			session.Toggle(crop)
		}
		snap = session.Snapshot()
	}

	if opts.save {
		if err := session.Save(ctx); err != nil {
			return fmt.Errorf("%s: %w", session.Status(), err)
		}
		snap = session.Snapshot()
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		path, err := resolveOutputPath(opts.output, "")
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		out = f
		root.logger.Info("writing report", zap.String("path", path), zap.String("format", opts.format))
	}
	if err := write(out, snap); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if opts.output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", filepath.Clean(opts.output))
	}
	return nil
}

func hasCrop(results []croprec.Recommendation, crop string) bool {
	for _, r := range results {
		if r.Crop == crop {
			return true
		}
	}
	return false
}

func reportWriter(format string) (func(io.Writer, croprec.Snapshot) error, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case formatText, "":
		return printSummary, nil
	case formatCSV:
		return func(w io.Writer, s croprec.Snapshot) error {
			return croprec.WriteCSV(w, croprec.ReportFromSnapshot(s))
		}, nil
	case formatMarkdown, "md":
		return func(w io.Writer, s croprec.Snapshot) error {
			return croprec.WriteMarkdown(w, croprec.ReportFromSnapshot(s))
		}, nil
	}
	return nil, errors.New("unknown --format " + format + ": want text, csv or markdown")
}

func printSummary(w io.Writer, s croprec.Snapshot) error {
	fmt.Fprintln(w, "==== Recommended Crops ====")
	if len(s.Results) == 0 {
		fmt.Fprintln(w, "  no recommendations")
	}
	for i, rec := range s.Results {
		mark := " "
		if s.IsSelected(rec.Crop) {
			mark = "x"
		}
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, mark, rec.Label())
	}
	if !s.DocumentID.IsZero() {
		fmt.Fprintf(w, "Document ID: %s\n", s.DocumentID)
	}
	_, err := fmt.Fprintln(w, s.Status)
	return err
}

// resolveOutputPath makes path absolute and creates its directory. With no
// path a timestamped file name under dir is returned.
func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("result_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}
