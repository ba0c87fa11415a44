package tool

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func newTestInvoker(t *testing.T, spec ToolSpec, impl Implementation) *Invoker {
	t.Helper()
	r := NewRegistry(WithIrreversibleWhitelist(spec.Name))
	if err := r.Register(spec, impl); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	iv, err := NewInvoker(r)
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}
	return iv
}

func TestInvokeSchemaViolationNamesField(t *testing.T) {
	t.Parallel()

	iv := newTestInvoker(t, ToolSpec{
		Name:       "demo.read",
		SideEffect: contractx.SideEffectReadOnly,
		Input: Schema{
			"query": {Kind: KindString, Required: true},
		},
	}, noopImpl)

	res := iv.Invoke(context.Background(), "s1", "demo.read", map[string]any{})
	if res.Outcome != contractx.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if res.Error == nil || res.Error.Kind != contractx.FailurePermanent {
		t.Fatalf("expected permanent failure, got %#v", res.Error)
	}
	if !strings.Contains(res.Error.Message, "field=query") {
		t.Fatalf("error must name the offending field: %s", res.Error.Message)
	}
}

func TestInvokeRejectsUndeclaredField(t *testing.T) {
	t.Parallel()

	iv := newTestInvoker(t, ToolSpec{
		Name:       "demo.read",
		SideEffect: contractx.SideEffectReadOnly,
		Input: Schema{
			"query": {Kind: KindString, Required: true},
		},
	}, noopImpl)

	res := iv.Invoke(context.Background(), "s1", "demo.read", map[string]any{
		"query": "x",
		"extra": 1,
	})
	if res.Outcome != contractx.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Error.Message, "field=extra") {
		t.Fatalf("error must name the undeclared field: %s", res.Error.Message)
	}
}

func TestInvokeWrapsDraftOutput(t *testing.T) {
	t.Parallel()

	iv := newTestInvoker(t, ToolSpec{
		Name:       "comm.draft",
		SideEffect: contractx.SideEffectDraft,
		Input: Schema{
			"body": {Kind: KindString, Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		// The implementation returns a bare string on purpose: marking it as
		// a draft is the invoker's job.
		return "draft text", nil
	})

	res := iv.Invoke(context.Background(), "s1", "comm.draft", map[string]any{"body": "hi"})
	if res.Outcome != contractx.OutcomeSucceeded {
		t.Fatalf("Invoke() outcome = %s, error = %#v", res.Outcome, res.Error)
	}
	env, ok := res.Payload.(contractx.DraftEnvelope)
	if !ok {
		t.Fatalf("expected DraftEnvelope payload, got %T", res.Payload)
	}
	if !env.Draft || env.Tool != "comm.draft" || env.Content != "draft text" {
		t.Fatalf("unexpected envelope: %#v", env)
	}
}

func TestInvokeClassifiesToolErrors(t *testing.T) {
	t.Parallel()

	iv := newTestInvoker(t, ToolSpec{
		Name:       "demo.flaky",
		SideEffect: contractx.SideEffectReadOnly,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, TransientError("rate limited")
	})

	res := iv.Invoke(context.Background(), "s1", "demo.flaky", nil)
	if res.Outcome != contractx.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if res.Error.Kind != contractx.FailureTransient {
		t.Fatalf("expected transient classification, got %s", res.Error.Kind)
	}

	iv = newTestInvoker(t, ToolSpec{
		Name:       "demo.broken",
		SideEffect: contractx.SideEffectReadOnly,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, PermanentError("no such customer")
	})

	res = iv.Invoke(context.Background(), "s1", "demo.broken", nil)
	if res.Error.Kind != contractx.FailurePermanent {
		t.Fatalf("expected permanent classification, got %s", res.Error.Kind)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	t.Parallel()

	iv := newTestInvoker(t, ToolSpec{
		Name:       "demo.panic",
		SideEffect: contractx.SideEffectReadOnly,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		panic("boom")
	})

	res := iv.Invoke(context.Background(), "s1", "demo.panic", nil)
	if res.Outcome != contractx.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if res.Error.Kind != contractx.FailurePermanent {
		t.Fatalf("panic must classify as permanent, got %s", res.Error.Kind)
	}
	if !strings.Contains(res.Error.Message, "boom") {
		t.Fatalf("unexpected message: %s", res.Error.Message)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	t.Parallel()

	iv, err := NewInvoker(NewRegistry())
	if err != nil {
		t.Fatalf("NewInvoker() error = %v", err)
	}
	res := iv.Invoke(context.Background(), "s1", "ghost", nil)
	if res.Outcome != contractx.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if !strings.Contains(res.Error.Message, "unknown tool") {
		t.Fatalf("unexpected message: %s", res.Error.Message)
	}
}
