package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Outcome is the immutable record of one replayed step.
type Outcome struct {
	Step           int            `json:"step"`
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Signature      string         `json:"signature,omitempty"`
	SerializedTx   string         `json:"serialized_tx,omitempty"`
	Err            string         `json:"error,omitempty"`
	Details        []string       `json:"details,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// Report is the single artifact of a replay run: every outcome in step order
// plus how the run ended.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	RPCURL     string    `json:"rpc_url"`
	Outcomes   []Outcome `json:"outcomes"`
	Halted     bool      `json:"halted"`
	HaltReason string    `json:"halt_reason,omitempty"`
}

// Classifications returns the per-step verdicts in step order.
func (r *Report) Classifications() []Classification {
	out := make([]Classification, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Classification
	}
	return out
}

// WriteFile persists the report as indented JSON, creating the parent
// directory if needed.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// LogSummary prints the run recap: the classification sequence and the final
// verdict.
func (r *Report) LogSummary(logger zerolog.Logger) {
	seq := make([]string, len(r.Outcomes))
	for i, c := range r.Classifications() {
		seq[i] = string(c)
	}

	logger.Info().
		Str("sequence", strings.Join(seq, ",")).
		Int("steps_run", len(r.Outcomes)).
		Dur("elapsed", r.FinishedAt.Sub(r.StartedAt)).
		Msg("replay sequence finished")

	if r.Halted {
		logger.Warn().Str("reason", r.HaltReason).Msg("replay halted on crash evidence")
		return
	}
	logger.Info().Msg("replay completed; the node survived every step")
}

// Recorder accumulates outcomes strictly in step order. It owns the report
// under construction; the driver is its only writer.
type Recorder struct {
	report Report
	logger zerolog.Logger
}

// NewRecorder starts an empty report for one run.
func NewRecorder(rpcURL string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		report: Report{
			StartedAt: time.Now().UTC(),
			RPCURL:    rpcURL,
		},
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Record appends one outcome and logs it as it happens.
func (r *Recorder) Record(o Outcome) {
	r.report.Outcomes = append(r.report.Outcomes, o)

	evt := r.logger.Info()
	if o.Classification != Confirmed {
		evt = r.logger.Warn()
	}
	evt = evt.
		Int("step", o.Step).
		Str("name", o.Name).
		Str("classification", string(o.Classification)).
		Int64("duration_ms", o.DurationMs)
	if o.Signature != "" {
		evt = evt.Str("signature", o.Signature)
	}
	if o.Err != "" {
		evt = evt.Str("error", o.Err)
	}
	evt.Msg("step finished")
}

// Halt marks the run as terminated before the sequence ran out.
func (r *Recorder) Halt(reason string) {
	r.report.Halted = true
	r.report.HaltReason = reason
}

// Finish stamps the end time and returns the completed report.
func (r *Recorder) Finish() *Report {
	r.report.FinishedAt = time.Now().UTC()
	report := r.report
	return &report
}
