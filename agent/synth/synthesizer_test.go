package synth

import (
	"reflect"
	"strings"
	"testing"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func healthCheckContext() *contractx.RequestContext {
	return &contractx.RequestContext{
		RequestID:   "req-1",
		Domain:      contractx.DomainHealthCheck,
		CompletedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
		Results: []contractx.StepResult{
			{StepID: "cost-analysis", Tool: "gcp.billing", Outcome: contractx.OutcomeSucceeded, Payload: "billing findings"},
			{StepID: "usage-analysis", Tool: "gcp.usage", Outcome: contractx.OutcomeSucceeded, Payload: "usage findings"},
			{
				StepID: "draft-findings", Tool: "comm.gmail_draft",
				Outcome: contractx.OutcomeSucceeded,
				Payload: contractx.DraftEnvelope{Draft: true, Tool: "comm.gmail_draft", Content: "draft body"},
			},
		},
	}
}

func TestSynthesizeDraftRequiresApproval(t *testing.T) {
	t.Parallel()

	a := New().Synthesize(healthCheckContext())
	if !a.RequiresHumanApproval {
		t.Fatal("artifact with a draft section must require human approval")
	}
	if len(a.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(a.Sections))
	}
	draft := a.Sections[2]
	if !draft.Draft {
		t.Fatal("draft section must be marked as draft")
	}
	if draft.Payload != "draft body" {
		t.Fatalf("draft payload = %v", draft.Payload)
	}
	if len(a.Manifest) != 0 {
		t.Fatalf("manifest should be empty, got %#v", a.Manifest)
	}
	if !strings.Contains(a.Summary, "pending human approval") {
		t.Fatalf("summary must mention pending approval: %q", a.Summary)
	}
}

func TestSynthesizeReadOnlyNeedsNoApproval(t *testing.T) {
	t.Parallel()

	rc := healthCheckContext()
	rc.Results = rc.Results[:2]
	a := New().Synthesize(rc)
	if a.RequiresHumanApproval {
		t.Fatal("read-only results must not require approval")
	}
	if len(a.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(a.Sections))
	}
}

func TestSynthesizePartialFailureManifest(t *testing.T) {
	t.Parallel()

	rc := &contractx.RequestContext{
		RequestID:   "req-2",
		Domain:      contractx.DomainEscalation,
		CompletedAt: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
		Results: []contractx.StepResult{
			{StepID: "create-case", Tool: "crm.create_case", Outcome: contractx.OutcomeSucceeded, Payload: "CASE-8675309"},
			{
				StepID: "knowledge-search", Tool: "knowledge.search",
				Outcome: contractx.OutcomeFailed,
				Error:   &contractx.ErrorDescriptor{Kind: contractx.FailureTransient, Message: "search backend unavailable"},
			},
			{StepID: "notify-incident-channel", Tool: "comm.chat_notify", Outcome: contractx.OutcomeSkipped, Reason: "timeout"},
		},
	}
	a := New().Synthesize(rc)
	if len(a.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(a.Sections))
	}
	if len(a.Manifest) != 2 {
		t.Fatalf("manifest = %d, want 2", len(a.Manifest))
	}
	if a.Manifest[0].Reason != "search backend unavailable" {
		t.Fatalf("failed entry reason = %q", a.Manifest[0].Reason)
	}
	if a.Manifest[1].Reason != "timeout" {
		t.Fatalf("skipped entry reason = %q", a.Manifest[1].Reason)
	}
	if !strings.Contains(a.Summary, "1/3 steps succeeded") {
		t.Fatalf("summary = %q", a.Summary)
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	t.Parallel()

	s := New()
	first := s.Synthesize(healthCheckContext())
	for i := 0; i < 5; i++ {
		if got := s.Synthesize(healthCheckContext()); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d diverged: %#v vs %#v", i, first, got)
		}
	}
	if !first.GeneratedAt.Equal(healthCheckContext().CompletedAt) {
		t.Fatalf("GeneratedAt = %v, want request CompletedAt", first.GeneratedAt)
	}
}

func TestDisambiguationArtifact(t *testing.T) {
	t.Parallel()

	rc := &contractx.RequestContext{
		RequestID:   "req-3",
		CompletedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	a := New().Disambiguation(rc)
	if a.Domain != contractx.DomainUnclassified {
		t.Fatalf("domain = %s", a.Domain)
	}
	if a.RequiresHumanApproval {
		t.Fatal("disambiguation carries no draft, must not require approval")
	}
	if len(a.Sections) != 0 || len(a.Manifest) != 0 {
		t.Fatal("disambiguation must carry no step output")
	}
	for _, d := range contractx.Domains {
		if !strings.Contains(a.Summary, string(d)) {
			t.Fatalf("summary must list domain %s: %q", d, a.Summary)
		}
	}
}
