package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
	nodex "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleRequestGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.newID, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Classify(ctx, in, o.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify: %w", err)
	}

	if err := graph.AddLambdaNode("build_plan",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildPlan(in, o.builder)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_plan: %w", err)
	}

	if err := graph.AddLambdaNode("execute_plan",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecutePlan(ctx, in, o.executor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_plan: %w", err)
	}

	if err := graph.AddLambdaNode("synthesize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Synthesize(in, o.synthesizer, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node synthesize: %w", err)
	}

	if err := graph.AddLambdaNode("park_drafts",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ParkDrafts(ctx, in, o.outbox)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node park_drafts: %w", err)
	}

	if err := graph.AddLambdaNode("audit_request",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AuditRequest(ctx, in, o.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node audit_request: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	if err := graph.AddLambdaNode("disambiguate",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Disambiguate(in, o.synthesizer, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node disambiguate: %w", err)
	}

	if err := graph.AddLambdaNode("audit_disambiguation",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AuditRequest(ctx, in, o.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node audit_disambiguation: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_disambiguation",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_disambiguation: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.RC == nil {
				return "", fmt.Errorf("%w: orchestrator graph state is nil", contractx.ErrValidation)
			}
			if in.RC.Domain.Valid() {
				return "build_plan", nil
			}
			return "disambiguate", nil
		},
		map[string]bool{
			"build_plan":   true,
			"disambiguate": true,
		},
	)

	if err := graph.AddBranch("classify", branch); err != nil {
		return nil, fmt.Errorf("add classification branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify"},
		{"build_plan", "execute_plan"},
		{"execute_plan", "synthesize"},
		{"synthesize", "park_drafts"},
		{"park_drafts", "audit_request"},
		{"audit_request", "finalize"},
		{"finalize", compose.END},
		{"disambiguate", "audit_disambiguation"},
		{"audit_disambiguation", "finalize_disambiguation"},
		{"finalize_disambiguation", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_request"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
