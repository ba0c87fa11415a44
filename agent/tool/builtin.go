package tool

import (
	"context"
	"fmt"
	"strings"
)

// Stub collaborators standing in for the monitoring, billing, CRM, Workspace,
// and knowledge-base APIs. Each respects the declared input schema and keeps
// payload shapes stable so the synthesizer output is reproducible. Production
// deployments override individual entries via Registry.Override.

func builtinImplementations() map[string]Implementation {
	return map[string]Implementation{
		ToolGCPMonitoring:   analyzeMonitoring,
		ToolGCPBilling:      analyzeBilling,
		ToolGCPUsage:        gatherUsage,
		ToolCRMProfile:      fetchCustomerProfile,
		ToolCRMCreateCase:   createSupportCase,
		ToolGmailDraft:      createGmailDraft,
		ToolSlidesDraft:     createSlidesDraft,
		ToolChatNotify:      notifyIncidentChannel,
		ToolKnowledgeSearch: searchKnowledgeBase,
	}
}

func analyzeMonitoring(ctx context.Context, args map[string]any) (any, error) {
	project := stringArg(args, "customer_project_id")
	return fmt.Sprintf(
		"Monitoring analysis for %s:\n"+
			"- The 'billing-service' shows a 20%% increase in p99 latency week-over-week.\n"+
			"- The 'frontend-load-balancer' has a 5%% error rate, above the 1%% SLO.\n"+
			"- All other services are within normal operating parameters.",
		project,
	), nil
}

func analyzeBilling(ctx context.Context, args map[string]any) (any, error) {
	project := stringArg(args, "customer_project_id")
	return fmt.Sprintf(
		"Cost analysis for %s:\n"+
			"- 5 large idle n2-standard-16 VMs could be shut down, saving an estimated $2,100/month.\n"+
			"- A Committed Use Discount on GKE resources would save an estimated $4,500/month.",
		project,
	), nil
}

func gatherUsage(ctx context.Context, args map[string]any) (any, error) {
	project := stringArg(args, "customer_project_id")
	return fmt.Sprintf(
		"Quarterly usage for %s:\n"+
			"- GCE core-hours: 1.2M (up 15%% from last quarter)\n"+
			"- GKE pod-hours: 3.5M (up 30%% from last quarter)\n"+
			"- BigQuery bytes scanned: 500TB (up 25%% from last quarter)\n"+
			"- New services adopted: Cloud Run, AlloyDB.",
		project,
	), nil
}

func fetchCustomerProfile(ctx context.Context, args map[string]any) (any, error) {
	customer := stringArg(args, "customer_name")
	if strings.Contains(customer, "Z") {
		return fmt.Sprintf(
			"Profile for %s:\n"+
				"- Industry: Finance\n"+
				"- Stated goal: reduce data processing costs by 20%%.\n"+
				"- Current stack: self-managed Postgres on GCE, BigQuery.",
			customer,
		), nil
	}
	return fmt.Sprintf(
		"Profile for %s:\n"+
			"- Industry: Retail\n"+
			"- Stated goal: improve e-commerce checkout reliability.\n"+
			"- Current stack: GKE, Cloud SQL, Spanner.",
		customer,
	), nil
}

func createSupportCase(ctx context.Context, args map[string]any) (any, error) {
	customer := stringArg(args, "customer_name")
	priority := stringArg(args, "priority")
	return fmt.Sprintf("Created %s support case CASE-8675309 for %s.", priority, customer), nil
}

func createGmailDraft(ctx context.Context, args map[string]any) (any, error) {
	recipient := stringArg(args, "recipient")
	subject := stringArg(args, "subject")
	body := stringArg(args, "body")
	return fmt.Sprintf("Draft email for %s\nSubject: %s\n\n%s", recipient, subject, body), nil
}

func createSlidesDraft(ctx context.Context, args map[string]any) (any, error) {
	customer := stringArg(args, "customer_name")
	quarter := stringArg(args, "quarter")
	return fmt.Sprintf(
		"QBR deck for %s (%s): https://docs.google.com/presentation/d/1aBcDeFgHiJkLmNoPqRsTuVwXyZ/edit",
		customer, quarter,
	), nil
}

func notifyIncidentChannel(ctx context.Context, args map[string]any) (any, error) {
	message := stringArg(args, "message")
	if strings.TrimSpace(message) == "" {
		return nil, PermanentError("notification message is empty")
	}
	return "Notification posted to incident channel.", nil
}

func searchKnowledgeBase(ctx context.Context, args map[string]any) (any, error) {
	query := strings.ToLower(stringArg(args, "query"))
	switch {
	case strings.Contains(query, "database latency"), strings.Contains(query, "latency"):
		return "Found post-mortem 'PM-2024-08-15-Database-Hotspotting': a misconfigured connection pool " +
			"caused lock contention; recommended exponential backoff and a larger pool.", nil
	case strings.Contains(query, "postgres"), strings.Contains(query, "alloydb"):
		return "Found 'AlloyDB Omni for Postgres - Customer Fit Guide': ideal customers run self-managed " +
			"PostgreSQL on VMs with high operational overhead.", nil
	default:
		return "No relevant documents found in the knowledge base.", nil
	}
}

func stringArg(args map[string]any, name string) string {
	if args == nil {
		return ""
	}
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}
