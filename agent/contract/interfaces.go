package contract

import "context"

// Classifier maps a request to exactly one capability domain, or to
// DomainUnclassified when confidence is below threshold or ambiguous.
// Implementations must be deterministic for the same inputs and rule set.
type Classifier interface {
	Classify(ctx context.Context, requestText string, hints map[string]string) (CapabilityDomain, error)
}

// Builder turns a classified request into an executable plan.
type Builder interface {
	Build(domain CapabilityDomain, requestText string) (*Plan, error)
}

// Invoker executes a single tool call. Invoke never returns an error: every
// failure below this boundary is captured into the StepResult.
type Invoker interface {
	Invoke(ctx context.Context, stepID, tool string, args map[string]any) StepResult
	SideEffect(tool string) (SideEffect, error)
}

// Executor walks a plan and produces one result slot per step.
type Executor interface {
	Execute(ctx context.Context, plan *Plan) []StepResult
}

// AuditSink receives one structured record per request.
type AuditSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// Outbox parks draft artifacts awaiting separate human action. Consumers must
// check RequiresHumanApproval before acting on anything they take out.
type Outbox interface {
	Put(ctx context.Context, artifact *SynthesizedArtifact) error
	Get(ctx context.Context, requestID string) (*SynthesizedArtifact, error)
	Delete(ctx context.Context, requestID string) error
}
