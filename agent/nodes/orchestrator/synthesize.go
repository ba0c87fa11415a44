package orchestratornode

import (
	"time"

	synthx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/synth"
)

func Synthesize(in *GraphState, synthesizer *synthx.Synthesizer, nowFn func() time.Time) (*GraphState, error) {
	in.RC.CompletedAt = nowFn().UTC()
	in.Artifact = synthesizer.Synthesize(in.RC)
	return in, nil
}

// Disambiguate is the terminal path for a request no domain claimed: no plan
// runs, the operator gets guidance instead.
func Disambiguate(in *GraphState, synthesizer *synthx.Synthesizer, nowFn func() time.Time) (*GraphState, error) {
	in.RC.CompletedAt = nowFn().UTC()
	in.Artifact = synthesizer.Disambiguation(in.RC)
	return in, nil
}
