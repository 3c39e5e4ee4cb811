package croprec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		err      error
		detailed bool
		want     string
	}{
		{"plain predict error", opPredict, errors.New("x"), false, StatusPredictFailed},
		{"predict network", opPredict, &RequestError{Kind: KindNetwork}, false, StatusPredictFailed},
		{"predict network detailed", opPredict, &RequestError{Kind: KindNetwork}, true,
			StatusPredictFailed + " (could not reach the prediction service)"},
		{"predict server message ignored", opPredict, &RequestError{Kind: KindServer, Message: "bad input"}, false, StatusPredictFailed},
		{"save decode", opSave, &RequestError{Kind: KindDecode}, false, StatusSaveFailed},
		{"save decode detailed", opSave, &RequestError{Kind: KindDecode}, true,
			StatusSaveFailed + " (the prediction service sent an unreadable response)"},
		{"save server message", opSave, &RequestError{Kind: KindServer, Message: "No crops selected!"}, false, "No crops selected!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureStatus(tt.op, tt.err, tt.detailed))
		})
	}
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{Op: opPredict, Kind: KindServer, StatusCode: 502}
	assert.Equal(t, "predict: server returned 502", err.Error())
	assert.Equal(t, FailureKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", FailureKind(0).String())
}
