package contract

import "time"

// CapabilityDomain is one of the fixed task categories the orchestrator can
// plan for. DomainUnclassified is a terminal classification outcome, not an
// error: it yields a disambiguation artifact instead of a plan.
type CapabilityDomain string

const (
	DomainHealthCheck     CapabilityDomain = "health-check"
	DomainEscalation      CapabilityDomain = "escalation"
	DomainQBRPrep         CapabilityDomain = "qbr-prep"
	DomainProductAdoption CapabilityDomain = "product-adoption"
	DomainUnclassified    CapabilityDomain = "unclassified"
)

// Domains lists every plannable domain in a fixed order. Classification must
// iterate this slice, never a map, so results stay deterministic.
var Domains = []CapabilityDomain{
	DomainHealthCheck,
	DomainEscalation,
	DomainQBRPrep,
	DomainProductAdoption,
}

func (d CapabilityDomain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// SideEffect classifies what a tool does to the outside world.
type SideEffect string

const (
	SideEffectReadOnly     SideEffect = "read-only"
	SideEffectDraft        SideEffect = "produces-draft"
	SideEffectIrreversible SideEffect = "irreversible"
)

// Request is the operator's entry payload.
type Request struct {
	Text  string            `json:"text"`
	Hints map[string]string `json:"hints,omitempty"`
}

// HintDomain short-circuits classification when the caller already knows the
// capability domain.
const HintDomain = "domain"

// PlanStep references a tool by name and carries concrete arguments bound at
// plan-build time. BindFrom threads upstream step payloads into arguments at
// execution time: arg name -> ids of steps whose outputs feed it.
type PlanStep struct {
	ID        string              `json:"id"`
	Tool      string              `json:"tool"`
	Args      map[string]any      `json:"args,omitempty"`
	Optional  bool                `json:"optional,omitempty"`
	DependsOn []string            `json:"depends_on,omitempty"`
	BindFrom  map[string][]string `json:"bind_from,omitempty"`
}

// Plan is the ordered set of tool invocations derived for one request. It is
// owned by exactly one in-flight request and discarded after execution.
type Plan struct {
	Domain CapabilityDomain `json:"domain"`
	Steps  []PlanStep       `json:"steps"`
}

func (p *Plan) Step(id string) (PlanStep, bool) {
	if p == nil {
		return PlanStep{}, false
	}
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return PlanStep{}, false
}

// Outcome is the terminal state of one plan step.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// FailureKind tells the executor whether a retry can help.
type FailureKind string

const (
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// ErrorDescriptor carries a tool failure across the invoker boundary without
// letting the underlying error escape as a fault.
type ErrorDescriptor struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// StepResult is written exactly once per step by the executor.
type StepResult struct {
	StepID   string           `json:"step_id"`
	Tool     string           `json:"tool,omitempty"`
	Outcome  Outcome          `json:"outcome"`
	Payload  any              `json:"payload,omitempty"`
	Error    *ErrorDescriptor `json:"error,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// DraftEnvelope wraps every produces-draft tool output. The invoker applies
// it regardless of what the tool returned, so draft detection downstream
// never depends on tool authors remembering to mark their output.
type DraftEnvelope struct {
	Draft   bool   `json:"draft"`
	Tool    string `json:"tool"`
	Content any    `json:"content"`
}

// ArtifactSection is one succeeded step payload inside the final artifact.
type ArtifactSection struct {
	StepID  string `json:"step_id"`
	Tool    string `json:"tool"`
	Draft   bool   `json:"draft,omitempty"`
	Payload any    `json:"payload"`
}

// ManifestEntry records a step that did not succeed. Partial results are
// explicitly partial; the manifest is never hidden from the operator.
type ManifestEntry struct {
	StepID  string  `json:"step_id"`
	Tool    string  `json:"tool,omitempty"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// SynthesizedArtifact is the single structured output returned to the caller.
// RequiresHumanApproval is computed by the synthesizer and is the one gate an
// external sender or finalizer must check before acting.
type SynthesizedArtifact struct {
	RequestID             string            `json:"request_id"`
	Domain                CapabilityDomain  `json:"domain"`
	Summary               string            `json:"summary"`
	Sections              []ArtifactSection `json:"sections,omitempty"`
	Manifest              []ManifestEntry   `json:"manifest,omitempty"`
	RequiresHumanApproval bool              `json:"requires_human_approval"`
	GeneratedAt           time.Time         `json:"generated_at"`
}

// RequestContext holds one request's full lifecycle. It is created at request
// entry, mutated only by the orchestrator, and discarded (or parked in the
// audit log / outbox) once the artifact is returned.
type RequestContext struct {
	RequestID   string
	Request     Request
	Domain      CapabilityDomain
	Plan        *Plan
	Results     []StepResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// StepOutcome is the audit-facing projection of one StepResult.
type StepOutcome struct {
	StepID     string  `json:"step_id"`
	Tool       string  `json:"tool,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	DurationMS int64   `json:"duration_ms"`
}

// AuditRecord is appended once per request to the configured audit sink.
type AuditRecord struct {
	RequestID             string           `json:"request_id"`
	RequestText           string           `json:"request_text"`
	Domain                CapabilityDomain `json:"domain"`
	Steps                 []StepOutcome    `json:"steps,omitempty"`
	RequiresHumanApproval bool             `json:"requires_human_approval"`
	Failure               string           `json:"failure,omitempty"`
	StartedAt             time.Time        `json:"started_at"`
	CompletedAt           time.Time        `json:"completed_at"`
}
