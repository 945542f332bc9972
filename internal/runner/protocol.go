package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidemark/surfreplay/internal/steps"
)

// BuildResult is the single JSON line a build subprocess writes to stdout.
// Success carries the serialized unsigned transaction; failure carries the
// builder's structured report verbatim, including aggregate sub-errors.
type BuildResult struct {
	Success      bool          `json:"success"`
	SerializedTx string        `json:"serialized_tx,omitempty"`
	Error        string        `json:"error,omitempty"`
	Details      string        `json:"details,omitempty"`
	Type         string        `json:"type,omitempty"`
	Errors       []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is one sub-error of an aggregate build failure.
type ErrorDetail struct {
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// SuccessResult wraps a serialized transaction in a protocol line.
func SuccessResult(txBase64 string) *BuildResult {
	return &BuildResult{Success: true, SerializedTx: txBase64}
}

// FailureResult converts a builder error into a protocol line. Structured
// build errors keep their class, details, and sub-errors; anything else
// degrades to a plain message.
func FailureResult(err error) *BuildResult {
	res := &BuildResult{Success: false, Type: "build_error"}

	var berr *steps.BuildError
	if errors.As(err, &berr) {
		res.Error = berr.Msg
		res.Details = berr.Details
		if berr.Kind != "" {
			res.Type = berr.Kind
		}
		for _, sub := range berr.Subs {
			res.Errors = append(res.Errors, ErrorDetail{
				Message:  sub.Message,
				Location: sub.Location,
			})
		}
		return res
	}

	res.Error = err.Error()
	return res
}

// WriteLine emits the result as exactly one newline-terminated JSON line.
func (r *BuildResult) WriteLine(out io.Writer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode build result: %w", err)
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write build result: %w", err)
	}
	return nil
}

// parseProtocolLine extracts the last well-formed protocol line from a build
// subprocess's stdout. Builders print exactly one line, but a runaway script
// may splatter other output first; anything that does not parse is ignored.
func parseProtocolLine(stdout []byte) (*BuildResult, error) {
	var last *BuildResult
	for _, line := range bytes.Split(stdout, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		// Require the success key so arbitrary JSON noise is not mistaken
		// for a result.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if _, ok := probe["success"]; !ok {
			continue
		}

		var res BuildResult
		if err := json.Unmarshal(line, &res); err != nil {
			continue
		}
		last = &res
	}
	if last == nil {
		return nil, errors.New("no protocol line found in build output")
	}
	return last, nil
}
