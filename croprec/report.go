package croprec

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// Report is the exportable part of a session: what was measured, what came
// back and what the user picked.
type Report struct {
	Form       FormData
	DocumentID TrackingID
	Results    []Recommendation
	Selected   []string
}

// ReportFromSnapshot copies the exportable fields out of a snapshot.
func ReportFromSnapshot(s Snapshot) Report {
	return Report{
		Form:       s.Form,
		DocumentID: s.DocumentID,
		Results:    s.Results,
		Selected:   s.Selected,
	}
}

func (r Report) isSelected(crop string) bool {
	for _, c := range r.Selected {
		if c == crop {
			return true
		}
	}
	return false
}

var reportHeader = []string{"rank", "crop", "probability", "selected", "document_id"}

// rows renders one line per recommendation in rank order.
func (r Report) rows() [][]string {
	out := make([][]string, 0, len(r.Results))
	for i, rec := range r.Results {
		out = append(out, []string{
			strconv.Itoa(i + 1),
			rec.Crop,
			formatProbability(rec.Probability),
			strconv.FormatBool(r.isSelected(rec.Crop)),
			r.DocumentID.String(),
		})
	}
	return out
}

// WriteCSV writes the recommendations as CSV with a header row.
func WriteCSV(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(r.rows()); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteMarkdown writes a human readable report with the measurements and the
// ranked recommendations.
func WriteMarkdown(w io.Writer, r Report) error {
	md := markdown.NewMarkdown(w)
	md.H1("Crop Recommendation")
	md.PlainText("")

	measurements := make([][]string, 0, len(Fields))
	for _, field := range Fields {
		measurements = append(measurements, []string{field.Label(), r.Form.Get(field)})
	}
	md.H2("Measurements")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Measurement", "Value"},
		Rows:   measurements,
	})
	md.PlainText("")

	md.H2("Recommendations")
	md.PlainText("")
	if len(r.Results) == 0 {
		md.PlainText("No recommendations.")
	} else {
		rows := make([][]string, 0, len(r.Results))
		for _, row := range r.rows() {
			selected := ""
			if row[3] == "true" {
				selected = "x"
			}
			rows = append(rows, []string{row[0], row[1], row[2], selected})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Crop", "Probability", "Selected"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if !r.DocumentID.IsZero() {
		md.PlainText("Document ID: `" + r.DocumentID.String() + "`")
		md.PlainText("")
	}
	if err := md.Build(); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}
