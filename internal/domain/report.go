package domain

import "time"

// Outcome is the terminal state of one agent job.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// AgentJobResult is the immutable record of one specialist job. Payload holds
// the specialist text on success and a diagnostic message otherwise.
type AgentJobResult struct {
	Role    string        `json:"role"`
	Outcome Outcome       `json:"outcome"`
	Payload string        `json:"payload"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// AggregatedReport is the combined output of one diagnosis run. Results follow
// the original role order of the request, not completion order.
type AggregatedReport struct {
	ID          string           `json:"id"`
	Results     []AgentJobResult `json:"results"`
	Summary     string           `json:"summary,omitempty"`
	FailedCount int              `json:"failed_count"`
	Elapsed     time.Duration    `json:"elapsed_ns"`
	FromCache   bool             `json:"from_cache"`
}

// SuccessCount returns the number of jobs that produced a usable result.
func (r AggregatedReport) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Usable reports whether at least one specialist succeeded. Only usable
// reports may be written to the result cache.
func (r AggregatedReport) Usable() bool {
	return r.SuccessCount() > 0
}
