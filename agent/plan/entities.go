package plan

import (
	"regexp"
	"strings"
)

// Entities are the structured values the builder can derive from a request.
// Extraction is rule-based on purpose: it keeps plan construction
// deterministic, and a model-backed extractor can replace it behind the same
// Builder contract.
type Entities struct {
	Customer string
	Project  string
	Priority string
	Quarter  string
	Feature  string
	Topic    string
}

var (
	customerQuotedPattern = regexp.MustCompile(`(?i)customer\s+['"]([^'"]+)['"]`)
	customerWordPattern   = regexp.MustCompile(`(?i)customer\s+([A-Za-z0-9][A-Za-z0-9_-]*)`)
	projectPattern        = regexp.MustCompile(`(?i)project\s+['"]?([a-z0-9][a-z0-9-]*)`)
	priorityPattern       = regexp.MustCompile(`(?i)\b(p[1-4])\b`)
	quarterPattern        = regexp.MustCompile(`(?i)\b(q[1-4])\s+(\d{4})\b`)
	quotedTopicPattern    = regexp.MustCompile(`['"]([^'"]{3,})['"]`)
	featureWordPattern    = regexp.MustCompile(`(?i)(?:feature|service|product)\s+([A-Za-z0-9][A-Za-z0-9._-]*)`)
	featureContext        = regexp.MustCompile(`(?i)\b(?:feature|service|product)\b`)
)

func ExtractEntities(text string) Entities {
	e := Entities{}

	if m := customerQuotedPattern.FindStringSubmatch(text); m != nil {
		e.Customer = strings.TrimSpace(m[1])
	} else if m := customerWordPattern.FindStringSubmatch(text); m != nil {
		e.Customer = strings.TrimSpace(m[1])
	}

	if m := projectPattern.FindStringSubmatch(text); m != nil {
		e.Project = strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := priorityPattern.FindStringSubmatch(text); m != nil {
		e.Priority = strings.ToUpper(m[1])
	}
	if m := quarterPattern.FindStringSubmatch(text); m != nil {
		e.Quarter = strings.ToUpper(m[1]) + " " + m[2]
	}
	if m := quotedTopicPattern.FindStringSubmatch(text); m != nil {
		e.Topic = strings.TrimSpace(m[1])
	}

	// A quoted phrase next to feature/service/product wording is the feature
	// name; otherwise fall back to the bare word after it.
	if e.Topic != "" && featureContext.MatchString(text) {
		e.Feature = e.Topic
	} else if m := featureWordPattern.FindStringSubmatch(text); m != nil {
		e.Feature = strings.TrimSpace(m[1])
	}

	return e
}

// projectID derives a project identifier from an explicit project entity or
// from the customer name. This is derivation from the request, not a silent
// default: when neither source exists the caller surfaces
// ErrMissingRequiredEntity instead.
func projectID(e Entities) string {
	if e.Project != "" {
		return e.Project
	}
	if e.Customer == "" {
		return ""
	}
	return slug(e.Customer) + "-prod"
}

func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
