package estimate

import (
	"fmt"
	"strings"
	"time"
)

// Render formats the estimate as a markdown report.
func Render(in Input, r *Result, generated time.Time) string {
	name := strings.TrimSpace(in.ProjectName)
	if name == "" {
		name = "Website Audit"
	}
	pct := func(v float64) float64 {
		if r.TotalHours == 0 {
			return 0
		}
		return v / r.TotalHours * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Project Estimation Report: %s\n\n", name)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Hours | % of Total |\n|--------|-------|-----------|\n")
	fmt.Fprintf(&b, "| Base Hours (Entities) | %.1f | %.1f%% |\n", r.BaseHours, pct(r.BaseHours))
	fmt.Fprintf(&b, "| Multipliers | %.1f | %.1f%% |\n", r.MultiplierHours, pct(r.MultiplierHours))
	fmt.Fprintf(&b, "| Migration | %.1f | %.1f%% |\n", r.MigrationHours, pct(r.MigrationHours))
	fmt.Fprintf(&b, "| Additional Effort | %.1f | %.1f%% |\n", r.AdditionalHours, pct(r.AdditionalHours))
	fmt.Fprintf(&b, "| Subtotal | %.1f | %.1f%% |\n", r.Subtotal, pct(r.Subtotal))
	fmt.Fprintf(&b, "| Buffer (%s) | %.1f | %.1f%% |\n", titleCase(r.RiskLevel), r.BufferHours, pct(r.BufferHours))
	fmt.Fprintf(&b, "| **TOTAL ESTIMATE** | **%.1f** | **100%%** |\n\n", r.TotalHours)

	b.WriteString("## Timeline Projections\n")
	for _, p := range r.Projections {
		fmt.Fprintf(&b, "\n### %s (%.0fh/week)\n- **Weeks:** %.1f\n- **Months:** %.1f\n", p.Label, p.HoursPerWeek, p.Weeks, p.Months)
	}

	realisticMonths := func(hours float64) float64 { return hours / (30 * hoursPerMonthFactor) }
	b.WriteString("\n## Estimate Ranges\n\n")
	b.WriteString("| Confidence | Hours | Timeline (30h/week) |\n|-----------|-------|---------------------|\n")
	fmt.Fprintf(&b, "| Optimistic (Base) | %.0f | %.1f months |\n", r.BaseHours, realisticMonths(r.BaseHours))
	fmt.Fprintf(&b, "| Likely (Recommended) | %.0f | %.1f months |\n", r.TotalHours, realisticMonths(r.TotalHours))
	fmt.Fprintf(&b, "| Pessimistic (+30%%) | %.0f | %.1f months |\n\n", r.Pessimistic(), realisticMonths(r.Pessimistic()))
	b.WriteString("**Recommendation:** Use the \"Likely\" estimate for planning and budgeting.\n\n---\n\n")

	b.WriteString("## Detailed Breakdown\n\n### Base Hours by Entity Type\n")
	writeBreakdown(&b, r.Breakdown)
	fmt.Fprintf(&b, "\n**Total Base Hours:** %.1f\n\n---\n\n", r.BaseHours)

	b.WriteString("### Multipliers Applied\n\n| Multiplier | Percentage | Hours |\n|-----------|-----------|-------|\n")
	for _, m := range r.Multipliers {
		fmt.Fprintf(&b, "| %s | %.0f%% | %.1f |\n", titleCase(m.Name), m.Percentage*100, m.Hours)
	}
	fmt.Fprintf(&b, "\n**Total Multipliers:** %.1f hours\n\n---\n\n", r.MultiplierHours)

	b.WriteString("### Migration Effort\n\n")
	if m := in.Migration; m != nil && m.Nodes > 0 {
		fmt.Fprintf(&b, "- **Content Volume:** %s nodes\n", thousands(m.Nodes))
		fmt.Fprintf(&b, "- **Complexity:** %s\n", titleCase(string(normalizeComplexity(m.Complexity))))
		fmt.Fprintf(&b, "- **Base Setup:** %.0f hours\n", migrationSetupHours)
		fmt.Fprintf(&b, "- **Migration Hours:** %.1f hours\n", r.MigrationHours)
	} else {
		b.WriteString("No migration required.\n")
	}

	b.WriteString("\n---\n\n### Additional Effort\n\n| Item | Hours |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Infrastructure Setup | %.1f |\n", infrastructureHours)
	fmt.Fprintf(&b, "| Training & Handover | %.1f |\n", trainingHandoverHours)
	fmt.Fprintf(&b, "| Project Management (%.0f%%) | %.1f |\n", pmPercentage*100, r.PMHours)
	fmt.Fprintf(&b, "| **Total Additional** | **%.1f** |\n\n---\n\n", r.AdditionalHours)

	b.WriteString("### Buffer for Unknowns\n\n")
	fmt.Fprintf(&b, "- **Risk Level:** %s\n", titleCase(r.RiskLevel))
	fmt.Fprintf(&b, "- **Buffer Percentage:** %.0f%%\n", r.BufferPercent*100)
	fmt.Fprintf(&b, "- **Buffer Hours:** %.1f\n\n---\n\n", r.BufferHours)

	b.WriteString("## Assumptions\n\n")
	for i, a := range r.Assumptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\n---\n\n## Risks\n\n")
	for i, risk := range r.Risks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, risk)
	}

	date := strings.TrimSpace(in.AuditDate)
	if date == "" {
		date = generated.Format("2006-01-02")
	}
	fmt.Fprintf(&b, "\n---\n\n*Generated: %s*\n", date)
	return b.String()
}

func writeBreakdown(b *strings.Builder, breakdown []EntityEstimate) {
	var order []EntityType
	groups := map[EntityType][]EntityEstimate{}
	for _, e := range breakdown {
		if _, ok := groups[e.Type]; !ok {
			order = append(order, e.Type)
		}
		groups[e.Type] = append(groups[e.Type], e)
	}

	for _, t := range order {
		fmt.Fprintf(b, "\n### %s\n\n| Name | Complexity | Hours |\n|------|-----------|-------|\n", titleCase(string(t)))
		var subtotal float64
		for _, e := range groups[t] {
			fmt.Fprintf(b, "| %s | %s | %.1f |\n", e.Name, titleCase(string(e.Complexity)), e.Hours)
			subtotal += e.Hours
		}
		fmt.Fprintf(b, "| **Subtotal** | | **%.1f** |\n", subtotal)
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
