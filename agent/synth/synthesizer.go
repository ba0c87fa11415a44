package synth

import (
	"fmt"
	"strings"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// Synthesizer folds step results into the single artifact returned to the
// operator. It is a pure function of the request context: no clock, no
// randomness, so the same results always produce the same artifact.
type Synthesizer struct{}

func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize walks results in plan order. Succeeded steps become sections,
// everything else lands in the manifest so partial output is visibly partial.
// RequiresHumanApproval is true exactly when at least one section carries a
// draft; nothing downstream may send a draft while that flag is set.
func (s *Synthesizer) Synthesize(rc *contractx.RequestContext) *contractx.SynthesizedArtifact {
	artifact := &contractx.SynthesizedArtifact{
		RequestID:   rc.RequestID,
		Domain:      rc.Domain,
		GeneratedAt: rc.CompletedAt,
	}

	drafts := 0
	for _, res := range rc.Results {
		switch res.Outcome {
		case contractx.OutcomeSucceeded:
			section := contractx.ArtifactSection{
				StepID:  res.StepID,
				Tool:    res.Tool,
				Payload: res.Payload,
			}
			if env, ok := res.Payload.(contractx.DraftEnvelope); ok && env.Draft {
				section.Draft = true
				section.Payload = env.Content
				drafts++
			}
			artifact.Sections = append(artifact.Sections, section)
		default:
			artifact.Manifest = append(artifact.Manifest, contractx.ManifestEntry{
				StepID:  res.StepID,
				Tool:    res.Tool,
				Outcome: res.Outcome,
				Reason:  failureReason(res),
			})
		}
	}

	artifact.RequiresHumanApproval = drafts > 0
	artifact.Summary = summarize(rc, len(artifact.Sections), len(artifact.Manifest), drafts)
	return artifact
}

// Disambiguation produces the terminal artifact for a request no domain
// claimed. It carries no sections and no plan output, only guidance.
func (s *Synthesizer) Disambiguation(rc *contractx.RequestContext) *contractx.SynthesizedArtifact {
	names := make([]string, 0, len(contractx.Domains))
	for _, d := range contractx.Domains {
		names = append(names, string(d))
	}
	return &contractx.SynthesizedArtifact{
		RequestID:   rc.RequestID,
		Domain:      contractx.DomainUnclassified,
		GeneratedAt: rc.CompletedAt,
		Summary: fmt.Sprintf(
			"request could not be mapped to a capability domain; rephrase it or pass hint %q with one of: %s",
			contractx.HintDomain, strings.Join(names, ", ")),
	}
}

func summarize(rc *contractx.RequestContext, sections, incomplete, drafts int) string {
	total := sections + incomplete
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d steps succeeded", rc.Domain, sections, total)
	if drafts > 0 {
		fmt.Fprintf(&b, "; %d draft(s) pending human approval", drafts)
	}
	if incomplete > 0 {
		fmt.Fprintf(&b, "; %d step(s) incomplete", incomplete)
	}
	return b.String()
}

func failureReason(res contractx.StepResult) string {
	if res.Reason != "" {
		return res.Reason
	}
	if res.Error != nil {
		return res.Error.Message
	}
	return string(res.Outcome)
}
