package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// Invoker executes one tool call: schema validation first, exactly one call
// to the bound implementation, and a uniform StepResult out. Nothing raises
// past this boundary; tool errors and panics alike become failed results.
// For produces-draft tools the invoker wraps the raw output in a
// DraftEnvelope; the invoker, not the tool author, enforces the draft
// marking.
type Invoker struct {
	registry *Registry
	now      func() time.Time
}

type InvokerOption func(*Invoker)

// WithClock overrides the wall clock used for duration measurement.
func WithClock(now func() time.Time) InvokerOption {
	return func(iv *Invoker) {
		if now != nil {
			iv.now = now
		}
	}
}

func NewInvoker(registry *Registry, opts ...InvokerOption) (*Invoker, error) {
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	iv := &Invoker{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(iv)
		}
	}
	return iv, nil
}

func (iv *Invoker) SideEffect(tool string) (contractx.SideEffect, error) {
	spec, err := iv.registry.Lookup(tool)
	if err != nil {
		return "", err
	}
	return spec.SideEffect, nil
}

func (iv *Invoker) Invoke(ctx context.Context, stepID, tool string, args map[string]any) contractx.StepResult {
	started := iv.now()

	spec, err := iv.registry.Lookup(tool)
	if err != nil {
		return iv.failed(stepID, tool, started, contractx.FailurePermanent, err.Error())
	}

	if err := ValidateArgs(spec.Input, args); err != nil {
		return iv.failed(stepID, tool, started, contractx.FailurePermanent, err.Error())
	}

	impl, err := iv.registry.implementation(tool)
	if err != nil {
		return iv.failed(stepID, tool, started, contractx.FailurePermanent, err.Error())
	}

	payload, callErr := call(ctx, impl, args)
	if callErr != nil {
		kind, msg := classifyFailure(ctx, callErr)
		return iv.failed(stepID, tool, started, kind, msg)
	}

	if spec.SideEffect == contractx.SideEffectDraft {
		payload = contractx.DraftEnvelope{
			Draft:   true,
			Tool:    spec.Name,
			Content: payload,
		}
	}

	return contractx.StepResult{
		StepID:   stepID,
		Tool:     spec.Name,
		Outcome:  contractx.OutcomeSucceeded,
		Payload:  payload,
		Duration: iv.now().Sub(started),
	}
}

// call runs the implementation exactly once, converting a panic into an
// ordinary permanent error.
func call(ctx context.Context, impl Implementation, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PermanentError("tool panicked: %v", r)
		}
	}()
	return impl(ctx, args)
}

func classifyFailure(ctx context.Context, err error) (contractx.FailureKind, string) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if toolErr.Transient {
			return contractx.FailureTransient, toolErr.Message
		}
		return contractx.FailurePermanent, toolErr.Message
	}
	// A call cut short by its deadline is worth retrying; a cancelled parent
	// context is surfaced as transient too and resolved by the executor.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return contractx.FailureTransient, err.Error()
	}
	return contractx.FailurePermanent, err.Error()
}

func (iv *Invoker) failed(stepID, tool string, started time.Time, kind contractx.FailureKind, msg string) contractx.StepResult {
	return contractx.StepResult{
		StepID:  stepID,
		Tool:    tool,
		Outcome: contractx.OutcomeFailed,
		Error: &contractx.ErrorDescriptor{
			Kind:    kind,
			Message: msg,
		},
		Duration: iv.now().Sub(started),
	}
}

// ValidateArgs checks args against the schema before any external call and
// names the offending field on violation.
func ValidateArgs(schema Schema, args map[string]any) error {
	fields := make([]string, 0, len(schema))
	for name := range schema {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		fs := schema[name]
		value, present := args[name]
		if !present {
			if fs.Required {
				return fmt.Errorf("%w: field=%s is required", contractx.ErrSchemaViolation, name)
			}
			continue
		}
		if !kindMatches(fs.Kind, value) {
			return fmt.Errorf("%w: field=%s must be %s", contractx.ErrSchemaViolation, name, fs.Kind)
		}
	}

	for name := range args {
		if _, known := schema[name]; !known {
			return fmt.Errorf("%w: field=%s is not declared", contractx.ErrSchemaViolation, name)
		}
	}
	return nil
}

func kindMatches(kind FieldKind, value any) bool {
	switch kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}
