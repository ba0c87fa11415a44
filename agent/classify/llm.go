package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

const defaultConfidenceThreshold = 0.6

// LLMClassifier substitutes a chat model behind the same Classifier contract
// as the rule engine. The orchestration core does not change when this
// implementation is wired in.
type LLMClassifier struct {
	runner    compose.Runnable[map[string]any, classifierLLMOutput]
	threshold float64
}

type classifierLLMOutput struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

type LLMOption func(*LLMClassifier)

// WithConfidenceThreshold sets the minimum model confidence; anything below
// classifies as Unclassified.
func WithConfidenceThreshold(threshold float64) LLMOption {
	return func(c *LLMClassifier) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

func NewLLMClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	opts ...LLMOption,
) (*LLMClassifier, error) {
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrValidation, err)
	}
	c := &LLMClassifier{
		runner:    runner,
		threshold: defaultConfidenceThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, requestText string, hints map[string]string) (contractx.CapabilityDomain, error) {
	if domain, ok, err := domainFromHints(hints); err != nil {
		return contractx.DomainUnclassified, err
	} else if ok {
		return domain, nil
	}

	if strings.TrimSpace(requestText) == "" {
		return contractx.DomainUnclassified, fmt.Errorf("%w: request text is empty", contractx.ErrValidation)
	}

	payload := map[string]any{
		"request": requestText,
		"domains": contractx.Domains,
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.DomainUnclassified, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.DomainUnclassified, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrValidation, err)
	}

	domain := contractx.CapabilityDomain(strings.TrimSpace(strings.ToLower(out.Domain)))
	if domain == contractx.DomainUnclassified {
		return contractx.DomainUnclassified, nil
	}
	if !domain.Valid() {
		return contractx.DomainUnclassified, fmt.Errorf("%w: model returned unknown domain %q", contractx.ErrValidation, out.Domain)
	}
	if out.Confidence < c.threshold {
		return contractx.DomainUnclassified, nil
	}
	return domain, nil
}
