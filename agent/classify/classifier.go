package classify

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

const defaultThreshold = 2

// RuleClassifier scores a request against per-domain keyword rules. It is
// fully deterministic: domains are scored in the fixed contract order, and a
// tie between the two best domains resolves to Unclassified rather than a
// guess.
type RuleClassifier struct {
	threshold int
	rules     []domainRule
}

type domainRule struct {
	domain   contractx.CapabilityDomain
	keywords map[string]int
}

type RuleOption func(*RuleClassifier)

// WithThreshold sets the minimum winning score; anything below classifies as
// Unclassified.
func WithThreshold(threshold int) RuleOption {
	return func(c *RuleClassifier) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

func NewRuleClassifier(opts ...RuleOption) *RuleClassifier {
	c := &RuleClassifier{
		threshold: defaultThreshold,
		rules:     defaultRules(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func defaultRules() []domainRule {
	return []domainRule{
		{
			domain: contractx.DomainHealthCheck,
			keywords: map[string]int{
				"health":       3,
				"cost":         2,
				"optimization": 2,
				"optimisation": 2,
				"monitoring":   2,
				"billing":      2,
				"report":       1,
				"idle":         1,
			},
		},
		{
			domain: contractx.DomainEscalation,
			keywords: map[string]int{
				"incident":    3,
				"escalation":  3,
				"escalate":    3,
				"p1":          3,
				"outage":      2,
				"case":        2,
				"post-mortem": 2,
			},
		},
		{
			domain: contractx.DomainQBRPrep,
			keywords: map[string]int{
				"qbr":             4,
				"business review": 3,
				"quarterly":       2,
				"deck":            2,
				"slides":          2,
				"presentation":    2,
			},
		},
		{
			domain: contractx.DomainProductAdoption,
			keywords: map[string]int{
				"adoption":     3,
				"new feature":  2,
				"new service":  2,
				"announced":    2,
				"launch":       2,
				"introductory": 2,
				"feature":      1,
			},
		},
	}
}

func (c *RuleClassifier) Classify(ctx context.Context, requestText string, hints map[string]string) (contractx.CapabilityDomain, error) {
	if domain, ok, err := domainFromHints(hints); err != nil {
		return contractx.DomainUnclassified, err
	} else if ok {
		return domain, nil
	}

	text := normalize(requestText)
	if text == "" {
		return contractx.DomainUnclassified, fmt.Errorf("%w: request text is empty", contractx.ErrValidation)
	}

	best := contractx.DomainUnclassified
	bestScore, runnerUp := 0, 0
	for _, rule := range c.rules {
		score := 0
		for keyword, weight := range rule.keywords {
			if containsWord(text, keyword) {
				score += weight
			}
		}
		if score > bestScore {
			runnerUp = bestScore
			bestScore = score
			best = rule.domain
		} else if score > runnerUp {
			runnerUp = score
		}
	}

	if bestScore < c.threshold || bestScore == runnerUp {
		return contractx.DomainUnclassified, nil
	}
	return best, nil
}

func domainFromHints(hints map[string]string) (contractx.CapabilityDomain, bool, error) {
	raw, ok := hints[contractx.HintDomain]
	if !ok {
		return "", false, nil
	}
	domain := contractx.CapabilityDomain(strings.TrimSpace(strings.ToLower(raw)))
	if !domain.Valid() {
		return "", false, fmt.Errorf("%w: unknown domain hint %q", contractx.ErrValidation, raw)
	}
	return domain, true, nil
}

// normalize lowercases and strips punctuation so keyword matching works on
// word boundaries instead of raw substrings.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsWord(normalized, keyword string) bool {
	return strings.Contains(" "+normalized+" ", " "+keyword+" ")
}
