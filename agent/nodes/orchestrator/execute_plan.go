package orchestratornode

import (
	"context"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func ExecutePlan(ctx context.Context, in *GraphState, executor contractx.Executor) (*GraphState, error) {
	in.RC.Results = executor.Execute(ctx, in.RC.Plan)
	return in, nil
}
