package plan

import (
	"fmt"
	"strings"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
	toolx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/tool"
)

const defaultCasePriority = "P2"

// TemplateBuilder produces a plan from a declarative per-domain template.
// Each template step names its tool, optionality, dependencies, and how its
// arguments bind: either from extracted entities at build time or from
// upstream step outputs at execution time (BindFrom).
type TemplateBuilder struct{}

func NewBuilder() *TemplateBuilder {
	return &TemplateBuilder{}
}

type stepTemplate struct {
	id        string
	tool      string
	optional  bool
	dependsOn []string
	bindFrom  map[string][]string
	// when gates inclusion on the request text; nil means always included.
	when func(text string, e Entities) bool
	// bind derives build-time arguments; it fails with
	// ErrMissingRequiredEntity when a required argument has no derivation.
	bind func(text string, e Entities) (map[string]any, error)
}

func (b *TemplateBuilder) Build(domain contractx.CapabilityDomain, requestText string) (*contractx.Plan, error) {
	text := strings.TrimSpace(requestText)
	if text == "" {
		return nil, fmt.Errorf("%w: request text is empty", contractx.ErrValidation)
	}

	templates, ok := domainTemplates()[domain]
	if !ok {
		return nil, fmt.Errorf("%w: no plan template for domain=%s", contractx.ErrValidation, domain)
	}

	entities := ExtractEntities(text)
	lower := strings.ToLower(text)

	included := make(map[string]struct{}, len(templates))
	steps := make([]contractx.PlanStep, 0, len(templates))
	for _, tpl := range templates {
		if tpl.when != nil && !tpl.when(lower, entities) {
			continue
		}
		args, err := tpl.bind(text, entities)
		if err != nil {
			return nil, err
		}
		steps = append(steps, contractx.PlanStep{
			ID:        tpl.id,
			Tool:      tpl.tool,
			Args:      args,
			Optional:  tpl.optional,
			DependsOn: pruneRefs(tpl.dependsOn, included),
			BindFrom:  pruneBindings(tpl.bindFrom, included),
		})
		included[tpl.id] = struct{}{}
	}

	p := &contractx.Plan{Domain: domain, Steps: steps}
	if err := ValidatePlan(p); err != nil {
		return nil, err
	}
	return p, nil
}

// pruneRefs drops references to template steps excluded by their when gate.
func pruneRefs(refs []string, included map[string]struct{}) []string {
	if len(refs) == 0 {
		return nil
	}
	kept := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := included[ref]; ok {
			kept = append(kept, ref)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func pruneBindings(bindings map[string][]string, included map[string]struct{}) map[string][]string {
	if len(bindings) == 0 {
		return nil
	}
	kept := make(map[string][]string, len(bindings))
	for arg, sources := range bindings {
		pruned := pruneRefs(sources, included)
		if len(pruned) > 0 {
			kept[arg] = pruned
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func domainTemplates() map[contractx.CapabilityDomain][]stepTemplate {
	return map[contractx.CapabilityDomain][]stepTemplate{
		contractx.DomainHealthCheck: {
			{
				id:   "monitoring-analysis",
				tool: toolx.ToolGCPMonitoring,
				bind: bindProject,
			},
			{
				id:   "cost-analysis",
				tool: toolx.ToolGCPBilling,
				bind: bindProject,
			},
			{
				id:   "usage-analysis",
				tool: toolx.ToolGCPUsage,
				bind: bindProject,
			},
			{
				id:        "draft-findings",
				tool:      toolx.ToolGmailDraft,
				optional:  true,
				dependsOn: []string{"monitoring-analysis", "cost-analysis", "usage-analysis"},
				bindFrom:  map[string][]string{"body": {"monitoring-analysis", "cost-analysis", "usage-analysis"}},
				when:      mentionsDraft,
				bind: func(text string, e Entities) (map[string]any, error) {
					customer, err := requireCustomer(e)
					if err != nil {
						return nil, err
					}
					return map[string]any{
						"recipient": draftRecipient(text, customer),
						"subject":   fmt.Sprintf("Proactive health and cost findings for %s", customer),
					}, nil
				},
			},
		},
		contractx.DomainEscalation: {
			{
				id:       "knowledge-search",
				tool:     toolx.ToolKnowledgeSearch,
				optional: true,
				when: func(text string, e Entities) bool {
					return strings.Contains(text, "knowledge") || strings.Contains(text, "post-mortem")
				},
				bind: func(text string, e Entities) (map[string]any, error) {
					query := e.Topic
					if query == "" {
						query = text
					}
					return map[string]any{"query": query}, nil
				},
			},
			{
				id:   "create-case",
				tool: toolx.ToolCRMCreateCase,
				bind: func(text string, e Entities) (map[string]any, error) {
					customer, err := requireCustomer(e)
					if err != nil {
						return nil, err
					}
					priority := e.Priority
					if priority == "" {
						priority = defaultCasePriority
					}
					summary := e.Topic
					if summary == "" {
						summary = truncate(text, 120)
					}
					return map[string]any{
						"customer_name": customer,
						"priority":      priority,
						"summary":       summary,
					}, nil
				},
			},
			{
				id:        "notify-incident-channel",
				tool:      toolx.ToolChatNotify,
				optional:  true,
				dependsOn: []string{"create-case"},
				bindFrom:  map[string][]string{"message": {"create-case"}},
				when: func(text string, e Entities) bool {
					return strings.Contains(text, "notify") || strings.Contains(text, "chat")
				},
				bind: func(text string, e Entities) (map[string]any, error) {
					return map[string]any{}, nil
				},
			},
		},
		contractx.DomainQBRPrep: {
			{
				id:   "usage-quarter",
				tool: toolx.ToolGCPUsage,
				bind: bindProject,
			},
			{
				id:   "customer-profile",
				tool: toolx.ToolCRMProfile,
				bind: func(text string, e Entities) (map[string]any, error) {
					customer, err := requireCustomer(e)
					if err != nil {
						return nil, err
					}
					return map[string]any{"customer_name": customer}, nil
				},
			},
			{
				id:        "qbr-deck",
				tool:      toolx.ToolSlidesDraft,
				dependsOn: []string{"usage-quarter", "customer-profile"},
				bindFrom: map[string][]string{
					"usage_data": {"usage-quarter"},
					"crm_data":   {"customer-profile"},
				},
				bind: func(text string, e Entities) (map[string]any, error) {
					customer, err := requireCustomer(e)
					if err != nil {
						return nil, err
					}
					if e.Quarter == "" {
						return nil, fmt.Errorf("%w: quarter", contractx.ErrMissingRequiredEntity)
					}
					return map[string]any{
						"customer_name": customer,
						"quarter":       e.Quarter,
					}, nil
				},
			},
		},
		contractx.DomainProductAdoption: {
			{
				id:   "usage-lookup",
				tool: toolx.ToolGCPUsage,
				bind: func(text string, e Entities) (map[string]any, error) {
					project := projectID(e)
					if project == "" {
						// No single customer named: look at the managed
						// portfolio instead.
						project = "customer-portfolio"
					}
					return map[string]any{"customer_project_id": project}, nil
				},
			},
			{
				id:       "fit-guide",
				tool:     toolx.ToolKnowledgeSearch,
				optional: true,
				when: func(text string, e Entities) bool {
					return strings.Contains(text, "announce") ||
						strings.Contains(text, "launch") ||
						strings.Contains(text, "identify")
				},
				bind: func(text string, e Entities) (map[string]any, error) {
					feature, err := requireFeature(e)
					if err != nil {
						return nil, err
					}
					return map[string]any{"query": feature}, nil
				},
			},
			{
				id:        "compose-email",
				tool:      toolx.ToolGmailDraft,
				dependsOn: []string{"usage-lookup", "fit-guide"},
				bindFrom:  map[string][]string{"body": {"usage-lookup", "fit-guide"}},
				bind: func(text string, e Entities) (map[string]any, error) {
					feature, err := requireFeature(e)
					if err != nil {
						return nil, err
					}
					recipient := e.Customer
					if recipient == "" {
						recipient = "target customer segment"
					}
					return map[string]any{
						"recipient": recipient,
						"subject":   fmt.Sprintf("Introducing %s", feature),
					}, nil
				},
			},
		},
	}
}

func bindProject(text string, e Entities) (map[string]any, error) {
	project := projectID(e)
	if project == "" {
		return nil, fmt.Errorf("%w: customer", contractx.ErrMissingRequiredEntity)
	}
	return map[string]any{"customer_project_id": project}, nil
}

func requireCustomer(e Entities) (string, error) {
	if e.Customer == "" {
		return "", fmt.Errorf("%w: customer", contractx.ErrMissingRequiredEntity)
	}
	return e.Customer, nil
}

func requireFeature(e Entities) (string, error) {
	if e.Feature != "" {
		return e.Feature, nil
	}
	if e.Topic != "" {
		return e.Topic, nil
	}
	return "", fmt.Errorf("%w: feature", contractx.ErrMissingRequiredEntity)
}

func mentionsDraft(text string, e Entities) bool {
	return strings.Contains(text, "draft") || strings.Contains(text, "email")
}

func draftRecipient(text, customer string) string {
	if strings.Contains(strings.ToLower(text), "engineering team") {
		return "internal engineering team"
	}
	return fmt.Sprintf("account team for %s", customer)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
