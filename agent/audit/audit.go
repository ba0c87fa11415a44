package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
	logx "github.com/jirapatw/TAM-Copilot-Orchestrator/pkg/logger"
)

// Record projects a completed request into its audit shape. Step payloads are
// dropped on purpose: the audit trail records what ran and how it ended, not
// customer data.
func Record(rc *contractx.RequestContext, artifact *contractx.SynthesizedArtifact) contractx.AuditRecord {
	rec := contractx.AuditRecord{
		RequestID:   rc.RequestID,
		RequestText: rc.Request.Text,
		Domain:      rc.Domain,
		StartedAt:   rc.StartedAt,
		CompletedAt: rc.CompletedAt,
	}
	if artifact != nil {
		rec.RequiresHumanApproval = artifact.RequiresHumanApproval
	}
	for _, res := range rc.Results {
		reason := res.Reason
		if reason == "" && res.Error != nil {
			reason = res.Error.Message
		}
		rec.Steps = append(rec.Steps, contractx.StepOutcome{
			StepID:     res.StepID,
			Tool:       res.Tool,
			Outcome:    res.Outcome,
			Reason:     reason,
			DurationMS: res.Duration.Milliseconds(),
		})
	}
	return rec
}

// LogSink writes each record as one structured log event.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: logx.Component("audit")}
}

func (s *LogSink) Append(ctx context.Context, rec contractx.AuditRecord) error {
	evt := s.logger.Info().
		Str("request_id", rec.RequestID).
		Str("domain", string(rec.Domain)).
		Bool("requires_human_approval", rec.RequiresHumanApproval).
		Time("started_at", rec.StartedAt).
		Time("completed_at", rec.CompletedAt).
		Int("steps", len(rec.Steps))
	if rec.Failure != "" {
		evt = evt.Str("failure", rec.Failure)
	}
	for _, step := range rec.Steps {
		if step.Outcome != contractx.OutcomeSucceeded {
			evt = evt.Str("step_"+step.StepID, string(step.Outcome))
		}
	}
	evt.Msg("request audited")
	return nil
}

// MemorySink retains records in order; tests assert against it.
type MemorySink struct {
	mu      sync.Mutex
	records []contractx.AuditRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(ctx context.Context, rec contractx.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemorySink) Records() []contractx.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contractx.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

// NoopSink discards records. Used when no audit backend is configured.
type NoopSink struct{}

func (NoopSink) Append(ctx context.Context, rec contractx.AuditRecord) error {
	return nil
}
