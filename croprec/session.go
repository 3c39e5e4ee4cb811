package croprec

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshot is a consistent copy of the session state handed to front-ends.
type Snapshot struct {
	// Rev increases with every state change; a front-end can drop snapshots
	// older than the last one it rendered.
	Rev        uint64
	Form       FormData
	Results    []Recommendation
	HasResults bool
	DocumentID TrackingID
	Selected   []string
	Status     string
	Predicting bool
	Saving     bool
}

// IsSelected reports whether crop is part of the selection.
func (s Snapshot) IsSelected(crop string) bool {
	for _, c := range s.Selected {
		if c == crop {
			return true
		}
	}
	return false
}

// Session holds the state of one crop recommendation form: the measurements,
// the last prediction, the user's selection and the status line.
//
// Every prediction and save is numbered. When a response arrives for a
// request that is no longer the newest of its kind it is dropped, so a slow
// stale reply can never overwrite a fresher one.
type Session struct {
	rec    Recommender
	logger *zap.Logger

	mu             sync.Mutex
	detailedErrors bool
	rev            uint64
	form           FormData
	results        []Recommendation
	hasResults     bool
	docID          TrackingID
	selection      *Selection
	status         string
	predictSeq     uint64
	predictDone    uint64
	saveSeq        uint64
	saveDone       uint64

	listenerMu sync.Mutex
	listeners  []func(Snapshot)
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger for request failures and stale drops.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDetailedErrors makes failure statuses name the failure kind.
func WithDetailedErrors(enabled bool) SessionOption {
	return func(s *Session) {
		s.detailedErrors = enabled
	}
}

// NewSession constructs a session backed by rec.
func NewSession(rec Recommender, opts ...SessionOption) (*Session, error) {
	if rec == nil {
		return nil, errors.New("recommender is required")
	}
	s := &Session{
		rec:       rec,
		logger:    zap.NewNop(),
		form:      NewFormData(),
		selection: NewSelection(),
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OnChange registers fn to receive a snapshot after every state change.
// Callbacks run on the goroutine that made the change.
func (s *Session) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// SetField overwrites one measurement.
func (s *Session) SetField(name Field, value string) error {
	s.mu.Lock()
	if err := s.form.Set(name, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.rev++
	s.mu.Unlock()
	s.notify()
	return nil
}

// Field returns the current text of one measurement.
func (s *Session) Field(name Field) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Get(name)
}

// Toggle flips crop in the selection and reports whether it is now selected.
func (s *Session) Toggle(crop string) bool {
	s.mu.Lock()
	selected := s.selection.Toggle(crop)
	s.rev++
	s.mu.Unlock()
	s.notify()
	return selected
}

// SetDetailedErrors switches later failure statuses between the generic
// text and one naming the failure kind.
func (s *Session) SetDetailedErrors(enabled bool) {
	s.mu.Lock()
	s.detailedErrors = enabled
	s.mu.Unlock()
}

// Status returns the status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the whole state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Rev:        s.rev,
		Form:       s.form.Clone(),
		HasResults: s.hasResults,
		DocumentID: s.docID,
		Selected:   s.selection.Items(),
		Status:     s.status,
		Predicting: s.predictSeq != s.predictDone,
		Saving:     s.saveSeq != s.saveDone,
	}
	if s.hasResults {
		snap.Results = append([]Recommendation{}, s.results...)
	}
	return snap
}

// Predict sends the current form to the prediction service. On success the
// result and document id replace the previous ones. On failure the previous
// result is left in place and the status shows the failure.
func (s *Session) Predict(ctx context.Context) error {
	s.mu.Lock()
	s.predictSeq++
	seq := s.predictSeq
	form := s.form.Clone()
	s.status = StatusPredicting
	s.rev++
	s.mu.Unlock()
	s.notify()

	start := time.Now()
	pred, err := s.rec.Predict(ctx, form)

	s.mu.Lock()
	if seq != s.predictSeq {
		latest := s.predictSeq
		s.mu.Unlock()
		s.logger.Debug("discarding stale prediction",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", latest),
			zap.Error(err))
		return ErrStaleResponse
	}
	s.predictDone = seq
	if err != nil {
		s.status = failureStatus(opPredict, err, s.detailedErrors)
		s.rev++
		s.mu.Unlock()
		s.logFailure(opPredict, err)
		s.notify()
		return err
	}
	s.results = append([]Recommendation{}, pred.Crops...)
	s.hasResults = true
	s.docID = pred.DocumentID
	s.status = StatusPredicted
	s.rev++
	s.mu.Unlock()

	s.logger.Info("prediction received",
		zap.Int("crops", len(pred.Crops)),
		zap.Stringer("document_id", pred.DocumentID),
		zap.Duration("elapsed", time.Since(start)))
	s.notify()
	return nil
}

// Save persists the current selection under the last document id. Without a
// usable document id (see TrackingID.Empty) nothing is sent and
// ErrMissingTrackingID is returned.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.docID.Empty() {
		s.status = StatusMissingID
		s.rev++
		s.mu.Unlock()
		s.notify()
		return ErrMissingTrackingID
	}
	s.saveSeq++
	seq := s.saveSeq
	req := SaveRequest{SelectedCrops: s.selection.Items(), DocumentID: s.docID}
	s.status = StatusSaving
	s.rev++
	s.mu.Unlock()
	s.notify()

	resp, err := s.rec.SaveSelection(ctx, req)

	s.mu.Lock()
	if seq != s.saveSeq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale save response", zap.Uint64("seq", seq), zap.Error(err))
		return ErrStaleResponse
	}
	s.saveDone = seq
	if err != nil {
		s.status = failureStatus(opSave, err, s.detailedErrors)
		s.rev++
		s.mu.Unlock()
		s.logFailure(opSave, err)
		s.notify()
		return err
	}
	s.status = resp.Message
	s.rev++
	s.mu.Unlock()

	s.logger.Info("selection saved",
		zap.Strings("crops", req.SelectedCrops),
		zap.Stringer("document_id", req.DocumentID),
		zap.String("message", resp.Message))
	s.notify()
	return nil
}

func (s *Session) logFailure(op string, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		fields = append(fields,
			zap.Stringer("kind", reqErr.Kind),
			zap.Int("status", reqErr.StatusCode),
			zap.String("request_id", reqErr.RequestID))
	}
	s.logger.Error("request failed", fields...)
}

func (s *Session) notify() {
	s.listenerMu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.listenerMu.Unlock()
	if len(listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}
