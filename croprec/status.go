package croprec

import "errors"

// Status line texts.
const (
	StatusIdle          = ""
	StatusPredicting    = "Predicting..."
	StatusPredicted     = "Prediction successful! Select crops to save."
	StatusPredictFailed = "An error occurred while predicting. Please try again."
	StatusMissingID     = "Document ID is missing!"
	StatusSaving        = "Saving selected crops..."
	StatusSaveFailed    = "An error occurred while saving selected crops."
)

var detailedFailure = map[FailureKind]string{
	KindNetwork: "could not reach the prediction service",
	KindServer:  "the prediction service returned an error",
	KindDecode:  "the prediction service sent an unreadable response",
}

// failureStatus picks the status text for a failed request. The generic text
// is used unless detailed is set; a save rejected with a server message
// always shows that message.
func failureStatus(op string, err error, detailed bool) string {
	generic := StatusPredictFailed
	if op == opSave {
		generic = StatusSaveFailed
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return generic
	}
	if op == opSave && reqErr.Kind == KindServer && reqErr.Message != "" {
		return reqErr.Message
	}
	if !detailed {
		return generic
	}
	detail, ok := detailedFailure[reqErr.Kind]
	if !ok {
		return generic
	}
	return generic + " (" + detail + ")"
}
