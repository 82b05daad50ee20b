package consilium

import (
	"context"
	"testing"

	"github.com/consilium-ai/consilium/internal/domain"
)

type mockDiagnoser struct {
	lastReq domain.DiagnosticRequest
	report  domain.AggregatedReport
	err     error
}

func (m *mockDiagnoser) Diagnose(_ context.Context, req domain.DiagnosticRequest) (domain.AggregatedReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func TestDiagnose_ForwardsRequest(t *testing.T) {
	mock := &mockDiagnoser{report: domain.AggregatedReport{ID: "r-1"}}
	c := &Client{diagnosis: mock}

	report, err := c.Diagnose(context.Background(), "chest pain", "cardiologist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ID != "r-1" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if mock.lastReq.CaseText != "chest pain" {
		t.Fatalf("case text not forwarded: %+v", mock.lastReq)
	}
	if len(mock.lastReq.Roles) != 1 || mock.lastReq.Roles[0] != "cardiologist" {
		t.Fatalf("roles not forwarded: %+v", mock.lastReq.Roles)
	}
}

func TestDiagnose_NoRolesMeansServiceDecides(t *testing.T) {
	mock := &mockDiagnoser{}
	c := &Client{diagnosis: mock}

	if _, err := c.Diagnose(context.Background(), "case"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.lastReq.Roles) != 0 {
		t.Fatalf("expected empty roles, got %+v", mock.lastReq.Roles)
	}
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(context.Background(), WithOpenAI("key"))
	if err == nil {
		t.Fatal("expected error without a database address")
	}
}

func TestNew_RequiresLanguageModel(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil {
		t.Fatal("expected error without a language model")
	}
}
