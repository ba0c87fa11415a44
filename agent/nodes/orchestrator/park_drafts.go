package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// ParkDrafts stores approval-gated artifacts in the outbox so a separate
// approval flow can pick them up. A parking failure never fails the request:
// the artifact still reaches the caller, and a lost parked copy only costs a
// regeneration.
func ParkDrafts(ctx context.Context, in *GraphState, box contractx.Outbox) (*GraphState, error) {
	if in.Artifact == nil || !in.Artifact.RequiresHumanApproval {
		return in, nil
	}
	if err := box.Put(ctx, in.Artifact); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", in.RC.RequestID).
			Msg("failed to park draft artifact")
	}
	return in, nil
}
