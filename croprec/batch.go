package croprec

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// fieldAliases are the header names accepted for each measurement, compared
// after normalizeKey. The short N/P/K forms follow the usual soil dataset
// layout.
var fieldAliases = map[Field][]string{
	FieldNitrogen:    {"nitrogen", "n"},
	FieldPhosphorus:  {"phosporus", "phosphorus", "p"},
	FieldPotassium:   {"potassium", "k"},
	FieldTemperature: {"temperature", "temp"},
	FieldHumidity:    {"humidity"},
	FieldPh:          {"ph"},
	FieldRainfall:    {"rainfall", "rain"},
}

// BatchOptions overrides header detection. Columns maps a field to a header
// name or a 1-based "#N" column index.
type BatchOptions struct {
	Columns map[Field]string
}

// BatchRow is one data line of a batch file.
type BatchRow struct {
	// Line is the 1-based line number in the source file.
	Line int
	Form FormData
}

// BatchResult is the outcome for one BatchRow.
type BatchResult struct {
	Row        BatchRow
	Prediction *Prediction
	Err        error
}

// ParseBatchFile reads a CSV or TSV file of measurements.
func ParseBatchFile(path string, opts BatchOptions) ([]BatchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	rows, err := ParseBatch(f, comma, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// ParseBatch reads delimited measurements from r. The first line must be a
// header naming all seven fields. Blank lines are skipped.
func ParseBatch(r io.Reader, comma rune, opts BatchOptions) ([]BatchRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}
	header := make([]string, len(first))
	for i, cell := range first {
		header[i] = cleanCell(cell)
	}
	columns, err := resolveFieldColumns(header, opts)
	if err != nil {
		return nil, err
	}
	var out []BatchRow
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlankRow(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		form := NewFormData()
		for _, field := range Fields {
			if idx := columns[field]; idx < len(row) {
				form[field] = cleanCell(row[idx])
			}
		}
		out = append(out, BatchRow{Line: line, Form: form})
	}
	return out, nil
}

// RunBatch predicts each row in order. Rows that fail validation are not
// sent. Each result is passed to progress, when set, as soon as it is known.
// Only context cancellation stops the run early.
func RunBatch(ctx context.Context, rec Recommender, rows []BatchRow, logger *zap.Logger, progress func(BatchResult)) ([]BatchResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]BatchResult, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := BatchResult{Row: row}
		if err := row.Form.Validate(); err != nil {
			res.Err = fmt.Errorf("line %d: %w", row.Line, err)
			logger.Warn("skipping invalid row", zap.Int("line", row.Line), zap.Error(err))
		} else {
			res.Prediction, res.Err = rec.Predict(ctx, row.Form)
			if res.Err != nil {
				logger.Error("batch prediction failed", zap.Int("line", row.Line), zap.Error(res.Err))
			}
		}
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results, nil
}

var batchHeader = []string{"line", "rank", "crop", "probability", "document_id", "error"}

// WriteBatchCSV writes one line per recommendation, or a single line carrying
// the error for rows that failed.
func WriteBatchCSV(w io.Writer, results []BatchResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(batchHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range results {
		line := strconv.Itoa(res.Row.Line)
		if res.Err != nil || res.Prediction == nil {
			msg := "no prediction"
			if res.Err != nil {
				msg = res.Err.Error()
			}
			if err := writer.Write([]string{line, "", "", "", "", msg}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			continue
		}
		for i, rec := range res.Prediction.Crops {
			record := []string{
				line,
				strconv.Itoa(i + 1),
				rec.Crop,
				formatProbability(rec.Probability),
				res.Prediction.DocumentID.String(),
				"",
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func resolveFieldColumns(header []string, opts BatchOptions) (map[Field]int, error) {
	columns := make(map[Field]int, len(Fields))
	for _, field := range Fields {
		if explicit := strings.TrimSpace(opts.Columns[field]); explicit != "" {
			idx, err := matchExplicitColumn(header, explicit)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Label(), err)
			}
			columns[field] = idx
			continue
		}
		idx := findColumn(header, fieldAliases[field])
		if idx < 0 {
			return nil, fmt.Errorf("column for %s not found", field.Label())
		}
		columns[field] = idx
	}
	return columns, nil
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cleanCell(cell) != "" {
			return false
		}
	}
	return true
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		key := normalizeKey(col)
		for _, cand := range candidates {
			if key == cand {
				return i
			}
		}
	}
	return -1
}

func matchExplicitColumn(header []string, explicit string) (int, error) {
	trimmed := strings.TrimSpace(explicit)
	key := normalizeKey(trimmed)
	for i, col := range header {
		if normalizeKey(col) == key {
			return i, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, err
		}
		if idx >= len(header) {
			return -1, fmt.Errorf("column index %s is out of range", trimmed)
		}
		return idx, nil
	}
	return -1, fmt.Errorf("column %q not found", explicit)
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}
