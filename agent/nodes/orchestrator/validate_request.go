package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

var ErrEmptyRequest = errors.New("request text is empty")

type GraphInput struct {
	Text  string
	Hints map[string]string

	// RequestID and StartedAt are stamped by the caller so that requests
	// rejected before the audit node can still be recorded under the same
	// identity. Left empty, ValidateRequest generates them.
	RequestID string
	StartedAt time.Time
}

type GraphOutput struct {
	Artifact *contractx.SynthesizedArtifact
}

// GraphState carries one request through the orchestrator graph. Each node
// receives it, mutates the request context, and hands it to the next node.
type GraphState struct {
	RC       *contractx.RequestContext
	Artifact *contractx.SynthesizedArtifact
}

func ValidateRequest(in GraphInput, newID func() string, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyRequest
	}

	requestID := in.RequestID
	if requestID == "" {
		requestID = newID()
	}
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = nowFn()
	}

	return &GraphState{
		RC: &contractx.RequestContext{
			RequestID: requestID,
			Request:   contractx.Request{Text: text, Hints: in.Hints},
			StartedAt: startedAt.UTC(),
		},
	}, nil
}
