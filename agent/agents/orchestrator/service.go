package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
	nodex "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/nodes/orchestrator"
	synthx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/synth"
)

var (
	ErrEmptyRequest = nodex.ErrEmptyRequest
	ErrNoArtifact   = nodex.ErrNoArtifact
)

// Orchestrator owns the request lifecycle: classify, plan, execute,
// synthesize, park drafts, audit. It returns exactly one artifact per
// request; partial tool failure is reported inside the artifact, never as a
// call failure.
type Orchestrator struct {
	classifier  contractx.Classifier
	builder     contractx.Builder
	executor    contractx.Executor
	synthesizer *synthx.Synthesizer
	outbox      contractx.Outbox
	audit       contractx.AuditSink

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	newID func() string
	now   func() time.Time
}

type Option func(*Orchestrator)

// WithOutbox enables draft parking. Without it, approval-gated artifacts are
// still returned but nothing is parked.
func WithOutbox(box contractx.Outbox) Option {
	return func(o *Orchestrator) {
		if box != nil {
			o.outbox = box
		}
	}
}

func WithAuditSink(sink contractx.AuditSink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.audit = sink
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func New(
	classifier contractx.Classifier,
	builder contractx.Builder,
	executor contractx.Executor,
	opts ...Option,
) (*Orchestrator, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if builder == nil {
		return nil, errors.New("plan builder is required")
	}
	if executor == nil {
		return nil, errors.New("plan executor is required")
	}

	o := &Orchestrator{
		classifier:  classifier,
		builder:     builder,
		executor:    executor,
		synthesizer: synthx.New(),
		outbox:      noopOutbox{},
		audit:       noopAuditSink{},
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleRequestGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) HandleRequest(ctx context.Context, req contractx.Request) (*contractx.SynthesizedArtifact, error) {
	requestID := o.newID()
	startedAt := o.now().UTC()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Text:      req.Text,
		Hints:     req.Hints,
		RequestID: requestID,
		StartedAt: startedAt,
	})
	if err != nil {
		o.auditRejected(ctx, requestID, req, startedAt, err)
		return nil, err
	}
	return out.Artifact, nil
}

// auditRejected records requests that never reach the audit node: validation
// and planning errors abort the graph before any step runs. Best-effort, like
// the in-graph audit.
func (o *Orchestrator) auditRejected(ctx context.Context, requestID string, req contractx.Request, startedAt time.Time, cause error) {
	rec := contractx.AuditRecord{
		RequestID:   requestID,
		RequestText: strings.TrimSpace(req.Text),
		StartedAt:   startedAt,
		CompletedAt: o.now().UTC(),
		Failure:     cause.Error(),
	}
	if err := o.audit.Append(ctx, rec); err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("failed to audit rejected request")
	}
}

type noopOutbox struct{}

func (noopOutbox) Put(context.Context, *contractx.SynthesizedArtifact) error {
	return nil
}

func (noopOutbox) Get(context.Context, string) (*contractx.SynthesizedArtifact, error) {
	return nil, errors.New("outbox is not configured")
}

func (noopOutbox) Delete(context.Context, string) error {
	return nil
}

type noopAuditSink struct{}

func (noopAuditSink) Append(context.Context, contractx.AuditRecord) error {
	return nil
}
