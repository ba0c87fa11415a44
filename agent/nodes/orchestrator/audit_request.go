package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	auditx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/audit"
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// AuditRequest appends the per-request record. Audit is best-effort: a sink
// failure is logged, never surfaced to the caller.
func AuditRequest(ctx context.Context, in *GraphState, sink contractx.AuditSink) (*GraphState, error) {
	rec := auditx.Record(in.RC, in.Artifact)
	if err := sink.Append(ctx, rec); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", in.RC.RequestID).
			Msg("failed to append audit record")
	}
	return in, nil
}
