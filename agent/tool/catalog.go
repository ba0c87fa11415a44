package tool

import (
	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// Tool names used by the plan templates. The catalog mirrors a TAM's four
// core responsibilities: proactive health, escalation handling, QBR prep,
// and product adoption.
const (
	ToolGCPMonitoring   = "gcp.monitoring"
	ToolGCPBilling      = "gcp.billing"
	ToolGCPUsage        = "gcp.usage"
	ToolCRMProfile      = "crm.customer_profile"
	ToolCRMCreateCase   = "crm.create_case"
	ToolGmailDraft      = "comm.gmail_draft"
	ToolSlidesDraft     = "comm.slides_draft"
	ToolChatNotify      = "comm.chat_notify"
	ToolKnowledgeSearch = "knowledge.search"
)

// CatalogSpecs declares the built-in tool set. crm.create_case and
// comm.chat_notify are irreversible and only register when whitelisted by
// configuration.
func CatalogSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Name:       ToolGCPMonitoring,
			Desc:       "Analyze Cloud Monitoring data for a customer project: latency, error rates, saturation.",
			SideEffect: contractx.SideEffectReadOnly,
			Input: Schema{
				"customer_project_id": {Kind: KindString, Desc: "Customer project identifier", Required: true},
			},
			Output: Schema{
				"analysis": {Kind: KindString, Desc: "Monitoring findings", Required: true},
			},
		},
		{
			Name:       ToolGCPBilling,
			Desc:       "Analyze Cloud Billing data for cost-saving opportunities.",
			SideEffect: contractx.SideEffectReadOnly,
			Input: Schema{
				"customer_project_id": {Kind: KindString, Desc: "Customer project identifier", Required: true},
			},
			Output: Schema{
				"analysis": {Kind: KindString, Desc: "Cost findings", Required: true},
			},
		},
		{
			Name:       ToolGCPUsage,
			Desc:       "Gather detailed service usage statistics for a customer project.",
			SideEffect: contractx.SideEffectReadOnly,
			Input: Schema{
				"customer_project_id": {Kind: KindString, Desc: "Customer project identifier", Required: true},
			},
			Output: Schema{
				"usage": {Kind: KindString, Desc: "Quarterly usage data", Required: true},
			},
		},
		{
			Name:       ToolCRMProfile,
			Desc:       "Retrieve a customer's CRM profile: goals, tech stack, key contacts.",
			SideEffect: contractx.SideEffectReadOnly,
			Input: Schema{
				"customer_name": {Kind: KindString, Desc: "Customer account name", Required: true},
			},
			Output: Schema{
				"profile": {Kind: KindString, Desc: "CRM profile text", Required: true},
			},
		},
		{
			Name:       ToolCRMCreateCase,
			Desc:       "Create a new support case in the case management system.",
			SideEffect: contractx.SideEffectIrreversible,
			Input: Schema{
				"customer_name": {Kind: KindString, Desc: "Customer account name", Required: true},
				"priority":      {Kind: KindString, Desc: "Case priority (P1..P4)", Required: true},
				"summary":       {Kind: KindString, Desc: "One-line issue summary", Required: true},
			},
			Output: Schema{
				"case_id": {Kind: KindString, Desc: "Created case identifier", Required: true},
			},
		},
		{
			Name:       ToolGmailDraft,
			Desc:       "Create a draft email. The draft is never sent by this system.",
			SideEffect: contractx.SideEffectDraft,
			Input: Schema{
				"recipient": {Kind: KindString, Desc: "Intended recipient", Required: true},
				"subject":   {Kind: KindString, Desc: "Email subject", Required: true},
				"body":      {Kind: KindString, Desc: "Email body", Required: true},
			},
			Output: Schema{
				"draft": {Kind: KindString, Desc: "Draft confirmation", Required: true},
			},
		},
		{
			Name:       ToolSlidesDraft,
			Desc:       "Create a QBR slide deck from a template, populated with usage and CRM data.",
			SideEffect: contractx.SideEffectDraft,
			Input: Schema{
				"customer_name": {Kind: KindString, Desc: "Customer account name", Required: true},
				"quarter":       {Kind: KindString, Desc: "Quarter label, e.g. Q2 2026", Required: true},
				"usage_data":    {Kind: KindString, Desc: "Usage statistics to populate", Required: true},
				"crm_data":      {Kind: KindString, Desc: "CRM profile to populate", Required: true},
			},
			Output: Schema{
				"slide_url": {Kind: KindString, Desc: "Link to the drafted deck", Required: true},
			},
		},
		{
			Name:       ToolChatNotify,
			Desc:       "Post a notification to the pre-configured incident chat room.",
			SideEffect: contractx.SideEffectIrreversible,
			Input: Schema{
				"message": {Kind: KindString, Desc: "Notification text", Required: true},
			},
			Output: Schema{
				"status": {Kind: KindString, Desc: "Delivery confirmation", Required: true},
			},
		},
		{
			Name:       ToolKnowledgeSearch,
			Desc:       "Search the internal knowledge base for relevant documents.",
			SideEffect: contractx.SideEffectReadOnly,
			Input: Schema{
				"query": {Kind: KindString, Desc: "Search query", Required: true},
			},
			Output: Schema{
				"documents": {Kind: KindString, Desc: "Matching document snippets", Required: true},
			},
		},
	}
}

// RegisterBuiltins registers the full catalog against its stub collaborators.
// Registration failure here is a startup misconfiguration and should halt the
// process.
func RegisterBuiltins(r *Registry) error {
	impls := builtinImplementations()
	for _, spec := range CatalogSpecs() {
		if err := r.Register(spec, impls[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}
