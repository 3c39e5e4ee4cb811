package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroassist/croprec/croprec"
)

type stubRecommender struct {
	mu    sync.Mutex
	forms []croprec.FormData
	saves []croprec.SaveRequest
}

func (s *stubRecommender) Predict(_ context.Context, form croprec.FormData) (*croprec.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, form)
	return &croprec.Prediction{
		Crops: []croprec.Recommendation{
			{Crop: "rice", Probability: 0.87},
			{Crop: "jute", Probability: 0.08},
		},
		DocumentID: croprec.NewTrackingID("abc123"),
	}, nil
}

func (s *stubRecommender) SaveSelection(_ context.Context, req croprec.SaveRequest) (*croprec.SaveResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, req)
	return &croprec.SaveResponse{Message: "Selected crops saved successfully!"}, nil
}

func newTestModel(t *testing.T, rec croprec.Recommender) Model {
	t.Helper()
	session, err := croprec.NewSession(rec)
	require.NoError(t, err)
	return New(context.Background(), session)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func fill(t *testing.T, m Model) Model {
	t.Helper()
	values := []string{"90", "42", "43", "20.8", "82", "6.5", "202.9"}
	for i, v := range values {
		m = typeText(t, m, v)
		if i < len(values)-1 {
			m, _ = update(t, m, key(tea.KeyTab))
		}
	}
	return m
}

func TestModelTypingUpdatesSession(t *testing.T) {
	m := newTestModel(t, &stubRecommender{})
	m = typeText(t, m, "90")
	m, _ = update(t, m, key(tea.KeyTab))
	m = typeText(t, m, "42")

	assert.Equal(t, "90", m.session.Field(croprec.FieldNitrogen))
	assert.Equal(t, "42", m.session.Field(croprec.FieldPhosphorus))
	assert.Equal(t, 1, m.focus)
}

func TestModelEnterWithMissingFieldShowsError(t *testing.T) {
	rec := &stubRecommender{}
	m := newTestModel(t, rec)
	m = typeText(t, m, "90")

	m, cmd := update(t, m, key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Contains(t, m.formErr, "Phosphorus")
	assert.Equal(t, 1, m.focus)
	assert.Contains(t, m.View(), "Phosphorus")
	assert.Empty(t, rec.forms)
}

func TestModelPredictToggleSave(t *testing.T) {
	rec := &stubRecommender{}
	m := newTestModel(t, rec)
	m = fill(t, m)

	m, cmd := update(t, m, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	require.Len(t, rec.forms, 1)
	assert.Equal(t, "6.5", rec.forms[0].Get(croprec.FieldPh))

	view := m.View()
	assert.Contains(t, view, "rice (Probability: 0.87)")
	assert.Contains(t, view, croprec.StatusPredicted)

	m, _ = update(t, m, key(tea.KeyTab))
	require.Equal(t, areaResults, m.area)
	m, _ = update(t, m, key(tea.KeySpace))
	assert.True(t, m.snap.IsSelected("rice"))
	assert.Contains(t, m.View(), "[x]")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	require.Len(t, rec.saves, 1)
	assert.Equal(t, []string{"rice"}, rec.saves[0].SelectedCrops)
	assert.Contains(t, m.View(), "Selected crops saved successfully!")
}

func TestModelSaveWithoutPrediction(t *testing.T) {
	rec := &stubRecommender{}
	m := newTestModel(t, rec)

	m, cmd := update(t, m, key(tea.KeyCtrlS))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), croprec.StatusMissingID)
	assert.Empty(t, rec.saves)
}

func TestModelResultCursor(t *testing.T) {
	m := newTestModel(t, &stubRecommender{})
	m = fill(t, m)
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, cmd())
	m, _ = update(t, m, key(tea.KeyTab))

	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyDown))
	assert.Equal(t, 1, m.cursor)
	m, _ = update(t, m, key(tea.KeySpace))
	assert.Equal(t, []string{"jute"}, m.snap.Selected)

	m, _ = update(t, m, key(tea.KeyTab))
	assert.Equal(t, areaForm, m.area)
	assert.Equal(t, 0, m.focus)
}

func TestModelSnapshotMessagesKeepNewest(t *testing.T) {
	m := newTestModel(t, &stubRecommender{})
	m, _ = update(t, m, snapshotMsg(croprec.Snapshot{Rev: 5, Status: "newer"}))
	m, _ = update(t, m, snapshotMsg(croprec.Snapshot{Rev: 4, Status: "older"}))
	assert.Equal(t, "newer", m.snap.Status)
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, &stubRecommender{})
	_, cmd := update(t, m, key(tea.KeyEsc))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelViewListsAllFields(t *testing.T) {
	view := newTestModel(t, &stubRecommender{}).View()
	for _, field := range croprec.Fields {
		assert.True(t, strings.Contains(view, field.Label()), "missing %s", field.Label())
	}
}
