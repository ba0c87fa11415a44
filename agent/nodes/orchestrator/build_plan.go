package orchestratornode

import (
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

func BuildPlan(in *GraphState, builder contractx.Builder) (*GraphState, error) {
	plan, err := builder.Build(in.RC.Domain, in.RC.Request.Text)
	if err != nil {
		return nil, err
	}
	in.RC.Plan = plan
	return in, nil
}
