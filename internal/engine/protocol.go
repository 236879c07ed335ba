package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigFileKey is the event key naming the Embulk config to run.
const ConfigFileKey = "config_file_name"

const missingConfigFileMessage = "Config file name is required. Please specify 'config_file_name' parameter."

var (
	ErrMissingConfigFile = errors.New(missingConfigFileMessage)
	ErrInvalidConfigFile = errors.New("config_file_name must be a string")
)

type Request struct {
	ConfigFileName string `json:"config_file_name"`
}

// ParseRequest extracts the Embulk config file name from a raw invocation
// event. Unknown keys are ignored.
func ParseRequest(event map[string]any) (Request, error) {
	raw, ok := event[ConfigFileKey]
	if !ok || raw == nil {
		return Request{}, ErrMissingConfigFile
	}

	name, ok := raw.(string)
	if !ok {
		return Request{}, fmt.Errorf("%w, got %T", ErrInvalidConfigFile, raw)
	}
	if name == "" {
		return Request{}, ErrMissingConfigFile
	}
	return Request{ConfigFileName: name}, nil
}

type OutcomeKind string

const (
	KindSuccess          OutcomeKind = "success"
	KindNonZeroExit      OutcomeKind = "non_zero_exit"
	KindTimedOut         OutcomeKind = "timed_out"
	KindValidationFailed OutcomeKind = "validation_failed"
	KindStartFailed      OutcomeKind = "start_failed"
)

// Outcome is the classified result of one invocation. Exactly one is
// produced per request.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Reason   string
}

func Succeeded() Outcome {
	return Outcome{Kind: KindSuccess}
}

func NonZeroExit(code int) Outcome {
	return Outcome{Kind: KindNonZeroExit, ExitCode: code}
}

func TimedOut() Outcome {
	return Outcome{Kind: KindTimedOut, ExitCode: -1}
}

func ValidationFailed(err error) Outcome {
	return Outcome{Kind: KindValidationFailed, Reason: err.Error()}
}

func StartFailed(err error) Outcome {
	return Outcome{Kind: KindStartFailed, ExitCode: -1, Reason: strings.TrimSpace(err.Error())}
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

const (
	SuccessMessage = "Embulk execution completed successfully"
	TimeoutMessage = "Embulk execution exceeded 13 minutes timeout"
)

// Message describes the outcome in the wording reported to callers.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return SuccessMessage
	case KindNonZeroExit:
		return fmt.Sprintf("Embulk execution failed with exit code: %d", o.ExitCode)
	case KindTimedOut:
		return TimeoutMessage
	case KindValidationFailed:
		return o.Reason
	case KindStartFailed:
		return fmt.Sprintf("Embulk process could not be started: %s", o.Reason)
	default:
		return fmt.Sprintf("unknown outcome %q", string(o.Kind))
	}
}
