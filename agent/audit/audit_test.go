package audit

import (
	"context"
	"testing"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func TestRecordProjection(t *testing.T) {
	t.Parallel()

	rc := &contractx.RequestContext{
		RequestID:   "req-42",
		Request:     contractx.Request{Text: "Run a cost optimization report for Customer X"},
		Domain:      contractx.DomainHealthCheck,
		StartedAt:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 8, 1, 9, 0, 3, 0, time.UTC),
		Results: []contractx.StepResult{
			{
				StepID: "cost-analysis", Tool: "gcp.billing",
				Outcome:  contractx.OutcomeSucceeded,
				Payload:  "sensitive customer findings",
				Duration: 1500 * time.Millisecond,
			},
			{
				StepID: "usage-analysis", Tool: "gcp.usage",
				Outcome: contractx.OutcomeFailed,
				Error:   &contractx.ErrorDescriptor{Kind: contractx.FailurePermanent, Message: "project not found"},
			},
		},
	}
	artifact := &contractx.SynthesizedArtifact{RequiresHumanApproval: true}

	rec := Record(rc, artifact)
	if rec.RequestID != "req-42" || rec.Domain != contractx.DomainHealthCheck {
		t.Fatalf("unexpected record identity: %#v", rec)
	}
	if !rec.RequiresHumanApproval {
		t.Fatal("approval flag must carry over from the artifact")
	}
	if len(rec.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(rec.Steps))
	}
	if rec.Steps[0].DurationMS != 1500 {
		t.Fatalf("duration = %d, want 1500", rec.Steps[0].DurationMS)
	}
	if rec.Steps[1].Reason != "project not found" {
		t.Fatalf("failure reason = %q", rec.Steps[1].Reason)
	}
}

func TestMemorySinkRetainsOrder(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	for _, id := range []string{"a", "b", "c"} {
		if err := sink.Append(context.Background(), contractx.AuditRecord{RequestID: id}); err != nil {
			t.Fatalf("Append(%s) error = %v", id, err)
		}
	}
	records := sink.Records()
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].RequestID != want {
			t.Fatalf("records[%d] = %s, want %s", i, records[i].RequestID, want)
		}
	}
}

func TestBunSinkRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := NewBunSink(Config{}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
