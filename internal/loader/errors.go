package loader

import "fmt"

// SourceUnavailableError reports a required input that is missing, unreadable,
// or malformed. It is fatal to a pipeline run.
type SourceUnavailableError struct {
	Source string // schema name, e.g. "facilities"
	Path   string
	Reason string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	msg := fmt.Sprintf("loader: %s source unavailable (%s): %s", e.Source, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

func unavailable(source, path, reason string, err error) error {
	return &SourceUnavailableError{Source: source, Path: path, Reason: reason, Err: err}
}
