package pipeline

import "fmt"

// Stages a conversion can fail in. Carried on ConvertError so callers can
// tell a bad URL from a backend outage.
const (
	StageClassification = "classification"
	StageFetch          = "fetch"
	StageConversion     = "conversion"
	StageCompletion     = "completion"
	StagePublish        = "publish"
)

// ConvertError describes a failed conversion with the stage it failed in.
type ConvertError struct {
	Stage string
	Msg   string
	Err   error
}

func (e *ConvertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
}

func (e *ConvertError) Unwrap() error { return e.Err }

func convertErr(stage, msg string, err error) *ConvertError {
	return &ConvertError{Stage: stage, Msg: msg, Err: err}
}
