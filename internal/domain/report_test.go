package domain

import "testing"

func TestAggregatedReport_Usable(t *testing.T) {
	report := AggregatedReport{Results: []AgentJobResult{
		{Role: "a", Outcome: OutcomeError},
		{Role: "b", Outcome: OutcomeTimeout},
	}}
	if report.Usable() {
		t.Fatal("a report without successes must not be usable")
	}
	if report.SuccessCount() != 0 {
		t.Fatalf("expected 0 successes, got %d", report.SuccessCount())
	}

	report.Results = append(report.Results, AgentJobResult{Role: "c", Outcome: OutcomeSuccess})
	if !report.Usable() || report.SuccessCount() != 1 {
		t.Fatalf("expected 1 success, got %d", report.SuccessCount())
	}
}
