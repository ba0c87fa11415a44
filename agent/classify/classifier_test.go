package classify

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func TestRuleClassifierHealthCheck(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "Run a cost optimization report for Customer X", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainHealthCheck {
		t.Fatalf("Classify() = %s, want %s", domain, contractx.DomainHealthCheck)
	}
}

func TestRuleClassifierProductAdoption(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "Draft an email to Customer Y about new feature Z", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainProductAdoption {
		t.Fatalf("Classify() = %s, want %s", domain, contractx.DomainProductAdoption)
	}
}

func TestRuleClassifierEscalation(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	text := "We have a P1 incident for Customer Y regarding 'database latency'. Create a support case and notify the incident chat room."
	domain, err := c.Classify(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainEscalation {
		t.Fatalf("Classify() = %s, want %s", domain, contractx.DomainEscalation)
	}
}

func TestRuleClassifierQBRPrep(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "Prepare the Q2 2026 QBR deck for Customer Z.", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainQBRPrep {
		t.Fatalf("Classify() = %s, want %s", domain, contractx.DomainQBRPrep)
	}
}

func TestRuleClassifierUnclassifiedBelowThreshold(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "Hello, what is the weather like?", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainUnclassified {
		t.Fatalf("Classify() = %s, want unclassified", domain)
	}
}

func TestRuleClassifierTieIsUnclassified(t *testing.T) {
	t.Parallel()

	// "billing" scores health-check at 2 and "case" scores escalation at 2;
	// equal confidence must never be resolved by guessing.
	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "billing case", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainUnclassified {
		t.Fatalf("Classify() = %s, want unclassified on tie", domain)
	}
}

func TestRuleClassifierDomainHint(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	domain, err := c.Classify(context.Background(), "whatever", map[string]string{
		contractx.HintDomain: "qbr-prep",
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainQBRPrep {
		t.Fatalf("Classify() = %s, want %s", domain, contractx.DomainQBRPrep)
	}

	_, err = c.Classify(context.Background(), "whatever", map[string]string{
		contractx.HintDomain: "nonsense",
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad hint, got %v", err)
	}
}

func TestRuleClassifierDeterministic(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	text := "Run a proactive health and cost check for Customer X and draft an email with the findings."
	first, err := c.Classify(context.Background(), text, nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := c.Classify(context.Background(), text, nil)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if got != first {
			t.Fatalf("classification is not deterministic: %s vs %s", got, first)
		}
	}
}

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestLLMClassifierSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"domain":"escalation","confidence":0.92}`},
		},
	}
	c, err := NewLLMClassifier(context.Background(), fake, "classifier prompt")
	if err != nil {
		t.Fatalf("NewLLMClassifier() error = %v", err)
	}

	domain, err := c.Classify(context.Background(), "P1 incident for Customer Y", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainEscalation {
		t.Fatalf("Classify() = %s, want escalation", domain)
	}
}

func TestLLMClassifierLowConfidence(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"domain":"escalation","confidence":0.31}`},
		},
	}
	c, err := NewLLMClassifier(context.Background(), fake, "classifier prompt")
	if err != nil {
		t.Fatalf("NewLLMClassifier() error = %v", err)
	}

	domain, err := c.Classify(context.Background(), "maybe an incident?", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if domain != contractx.DomainUnclassified {
		t.Fatalf("Classify() = %s, want unclassified below threshold", domain)
	}
}

func TestLLMClassifierUnknownDomain(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"domain":"world-domination","confidence":0.99}`},
		},
	}
	c, err := NewLLMClassifier(context.Background(), fake, "classifier prompt")
	if err != nil {
		t.Fatalf("NewLLMClassifier() error = %v", err)
	}

	_, err = c.Classify(context.Background(), "do the thing", nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
