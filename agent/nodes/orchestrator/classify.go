package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func Classify(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	domain, err := classifier.Classify(ctx, in.RC.Request.Text, in.RC.Request.Hints)
	if err != nil {
		return nil, err
	}
	in.RC.Domain = domain
	log.Debug().
		Str("request_id", in.RC.RequestID).
		Str("domain", string(domain)).
		Msg("request classified")
	return in, nil
}
