package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroassist/croprec/croprec"
)

type fakeService struct {
	mu          sync.Mutex
	forms       []map[string]string
	saves       []map[string]json.RawMessage
	failPredict bool
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	svc := &fakeService{}
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var form map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		svc.mu.Lock()
		svc.forms = append(svc.forms, form)
		fail := svc.failPredict
		svc.mu.Unlock()
		if fail {
			http.Error(w, `{"error":"model unavailable"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"top_5_crops":[{"crop":"rice","probability":0.87},{"crop":"jute","probability":0.08}],"document_id":"abc123"}`))
	})
	mux.HandleFunc("/store-selected-crops", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		svc.mu.Lock()
		svc.saves = append(svc.saves, body)
		svc.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Selected crops saved successfully!"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("API is running."))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return svc, server
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{croprec.EnvBaseURL, croprec.EnvPredictURL, croprec.EnvSaveURL, croprec.EnvTimeout, croprec.EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var measurementArgs = []string{
	"--nitrogen", "90", "--phosphorus", "42", "--potassium", "43",
	"--temperature", "20.8", "--humidity", "82", "--ph", "6.5", "--rainfall", "202.9",
}

func predictArgs(baseURL string, extra ...string) []string {
	args := append([]string{"predict", "--base-url", baseURL}, measurementArgs...)
	return append(args, extra...)
}

func TestPredictSelectAndSave(t *testing.T) {
	svc, server := newFakeService(t)

	out, err := execute(t, predictArgs(server.URL, "--select", "rice", "--save")...)
	require.NoError(t, err)

	assert.Contains(t, out, "1. [x] rice (Probability: 0.87)")
	assert.Contains(t, out, "2. [ ] jute (Probability: 0.08)")
	assert.Contains(t, out, "Document ID: abc123")
	assert.Contains(t, out, "Selected crops saved successfully!")

	require.Len(t, svc.forms, 1)
	assert.Equal(t, "42", svc.forms[0]["Phosporus"])
	assert.Equal(t, "6.5", svc.forms[0]["Ph"])
	require.Len(t, svc.saves, 1)
	assert.JSONEq(t, `["rice"]`, string(svc.saves[0]["selected_crops"]))
	assert.JSONEq(t, `"abc123"`, string(svc.saves[0]["document_id"]))
}

func TestPredictRejectsInvalidMeasurement(t *testing.T) {
	svc, server := newFakeService(t)
	args := predictArgs(server.URL, "--ph", "acidic")

	_, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ph")
	assert.Empty(t, svc.forms)
}

func TestPredictRejectsUnknownSelection(t *testing.T) {
	svc, server := newFakeService(t)

	_, err := execute(t, predictArgs(server.URL, "--select", "wheat", "--save")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wheat")
	assert.Empty(t, svc.saves)
}

func TestPredictServerFailure(t *testing.T) {
	svc, server := newFakeService(t)
	svc.failPredict = true

	_, err := execute(t, predictArgs(server.URL)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), croprec.StatusPredictFailed)
}

func TestPredictWritesCSVReport(t *testing.T) {
	_, server := newFakeService(t)
	path := filepath.Join(t.TempDir(), "reports", "rice.csv")

	out, err := execute(t, predictArgs(server.URL, "--select", "jute", "--format", "csv", "--output", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rank,crop,probability,selected,document_id", lines[0])
	assert.Equal(t, "2,jute,0.08,true,abc123", lines[2])
}

func TestPredictMarkdownToStdout(t *testing.T) {
	_, server := newFakeService(t)

	out, err := execute(t, predictArgs(server.URL, "--format", "markdown")...)
	require.NoError(t, err)
	assert.Contains(t, out, "# Crop Recommendation")
	assert.Contains(t, out, "abc123")
}

func TestPredictUnknownFormat(t *testing.T) {
	_, server := newFakeService(t)

	_, err := execute(t, predictArgs(server.URL, "--format", "xml")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown --format")
}

func TestSaveNumericDocumentID(t *testing.T) {
	svc, server := newFakeService(t)

	out, err := execute(t, "save", "--base-url", server.URL, "--document-id", "42", "--numeric-id", "--crop", "rice", "--crop", "maize")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected crops saved successfully!")

	require.Len(t, svc.saves, 1)
	assert.Equal(t, "42", string(svc.saves[0]["document_id"]))
	assert.JSONEq(t, `["rice","maize"]`, string(svc.saves[0]["selected_crops"]))
}

func TestSaveStringDocumentIDIsQuoted(t *testing.T) {
	svc, server := newFakeService(t)

	_, err := execute(t, "save", "--base-url", server.URL, "--document-id", "42")
	require.NoError(t, err)
	require.Len(t, svc.saves, 1)
	assert.Equal(t, `"42"`, string(svc.saves[0]["document_id"]))
	assert.JSONEq(t, `[]`, string(svc.saves[0]["selected_crops"]))
}

func TestSaveRejectsZeroID(t *testing.T) {
	svc, server := newFakeService(t)

	_, err := execute(t, "save", "--base-url", server.URL, "--document-id", "0", "--numeric-id")
	require.Error(t, err)
	assert.Empty(t, svc.saves)
}

func TestSaveRejectsNonNumericID(t *testing.T) {
	svc, server := newFakeService(t)

	_, err := execute(t, "save", "--base-url", server.URL, "--document-id", "abc", "--numeric-id")
	require.Error(t, err)
	assert.Empty(t, svc.saves)
}

func TestBatchWritesResults(t *testing.T) {
	svc, server := newFakeService(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "samples.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"N,P,K,temperature,humidity,ph,rainfall\n"+
			"90,42,43,20.8,82,6.5,202.9\n"+
			"85,58,41,21.7,80,,226.6\n"), 0o644))
	output := filepath.Join(dir, "out.csv")

	out, err := execute(t, "batch", "--base-url", server.URL, "--input", input, "--output", output, "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "line 2: rice (Probability: 0.87)")
	assert.Contains(t, out, "line 3: error")
	assert.Contains(t, out, "Predicted 1 of 2 rows (1 failed)")
	assert.Len(t, svc.forms, 1)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "line,rank,crop,probability,document_id,error", lines[0])
	assert.Equal(t, "2,1,rice,0.87,abc123,", lines[1])
	assert.Equal(t, "3,,,,,line 3: pH: value is required", lines[3])
}

func TestBatchExplicitColumns(t *testing.T) {
	svc, server := newFakeService(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "samples.tsv")
	require.NoError(t, os.WriteFile(input, []byte(
		"a\tb\tc\td\te\tacidity\tf\n"+
			"90\t42\t43\t20.8\t82\t6.5\t202.9\n"), 0o644))

	_, err := execute(t, "batch", "--base-url", server.URL, "--input", input,
		"--output", filepath.Join(dir, "out.csv"),
		"--column", "nitrogen=#1", "--column", "Phosphorus=b", "--column", "potassium=#3",
		"--column", "temperature=d", "--column", "humidity=e", "--column", "pH=acidity",
		"--column", "Rainfall=#7")
	require.NoError(t, err)
	require.Len(t, svc.forms, 1)
	assert.Equal(t, "6.5", svc.forms[0]["Ph"])
	assert.Equal(t, "202.9", svc.forms[0]["Rainfall"])
}

func TestPing(t *testing.T) {
	_, server := newFakeService(t)

	out, err := execute(t, "ping", "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "API is running.")
}

func TestInitWritesConfigOnce(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "croprec", "config.yaml")
	run := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", path, "init"}, args...))
		return cmd.Execute()
	}

	require.NoError(t, run("--base-url", "http://farm.local:9000"))
	cfg, err := croprec.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://farm.local:9000/predict", cfg.Endpoints.PredictURL)

	assert.Error(t, run())
	assert.NoError(t, run("--force"))
	cfg, err = croprec.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, croprec.DefaultBaseURL, cfg.Endpoints.BaseURL)
}

func TestParseColumnFlags(t *testing.T) {
	cols, err := parseColumnFlags([]string{"ph=#6", "Phosporus = P2O5"})
	require.NoError(t, err)
	assert.Equal(t, "#6", cols[croprec.FieldPh])
	assert.Equal(t, "P2O5", cols[croprec.FieldPhosphorus])

	_, err = parseColumnFlags([]string{"salinity=#2"})
	assert.ErrorIs(t, err, croprec.ErrUnknownField)

	_, err = parseColumnFlags([]string{"ph"})
	assert.Error(t, err)
}
