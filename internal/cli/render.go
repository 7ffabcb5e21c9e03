package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Review band used when coloring classification confidence.
const (
	reviewHigh = 0.8
	reviewLow  = 0.5
)

// RenderResults lists transactions in input order with their classification.
func RenderResults(transactions []model.Transaction, results map[string]model.ClassificationResult) string {
	table := NewTable("ID", "DATE", "AMOUNT", "DESCRIPTION", "CATEGORY", "TAX", "CONF", "SOURCE")

	seen := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}

		r, ok := results[tx.ID]
		if !ok {
			continue
		}

		category := r.CategoryName
		if r.NeedsReview {
			category = WarningStyle.Render(category + " ?")
		}

		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}

		table.Row(
			tx.ID,
			date,
			tx.Amount.StringFixed(2),
			truncate(tx.Description, 40),
			category,
			string(r.TaxMapping),
			ConfidenceStyle(r.ConfidenceScore, reviewHigh, reviewLow).Render(fmt.Sprintf("%.2f", r.ConfidenceScore)),
			sourceLabel(r.Source),
		)
	}
	return table.Render()
}

func sourceLabel(source model.ClassificationSource) string {
	switch source {
	case model.SourceRule:
		return RuleIcon + " rule"
	case model.SourceAI:
		return RobotIcon + " ai"
	default:
		return string(source)
	}
}

// RenderSummary renders classification totals in a box.
func RenderSummary(s model.ClassificationSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transactions:   %d\n", s.Total)
	fmt.Fprintf(&b, "Rule matches:   %s\n", SuccessStyle.Render(fmt.Sprint(s.RuleHits)))
	fmt.Fprintf(&b, "AI classified:  %d\n", s.AIResults)
	fmt.Fprintf(&b, "Needs review:   %s\n", WarningStyle.Render(fmt.Sprint(s.NeedsReview)))
	fmt.Fprintf(&b, "Fallbacks:      %s", ErrorStyle.Render(fmt.Sprint(s.Fallbacks)))
	return RenderBox(ChartIcon+" Classification Summary", b.String())
}

// RenderLearning renders the outcome of a correction.
func RenderLearning(outcome model.LearningOutcome) string {
	if !outcome.Success {
		return FormatError(outcome.Message)
	}
	return FormatSuccess(outcome.Message)
}

// RenderRules lists rules in the order given.
func RenderRules(rules []model.Rule) string {
	if len(rules) == 0 {
		return SubtleStyle.Render("No rules yet. Seed some with: spice rules seed")
	}

	table := NewTable("ID", "KEYWORD", "MATCH", "CATEGORY", "TAX", "TYPE", "SOURCE", "PRIORITY", "USES")
	for _, r := range rules {
		table.Row(
			shortID(r.ID),
			BoldStyle.Render(r.Keyword),
			string(r.MatchType),
			r.CategoryName,
			string(r.TaxMapping),
			string(r.TransactionType),
			string(r.Source),
			fmt.Sprint(r.Priority),
			fmt.Sprint(r.UsageCount),
		)
	}
	return table.Render()
}

// RenderMetrics renders rule store statistics.
func RenderMetrics(m model.RuleMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total rules:  %d\n", m.TotalRules)
	fmt.Fprintf(&b, "Total uses:   %d\n", m.TotalUsage)

	sources := make([]string, 0, len(m.BySource))
	for source := range m.BySource {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(&b, "  %-13s %d\n", source+":", m.BySource[model.RuleSource(source)])
	}

	if len(m.TopRules) > 0 {
		b.WriteString("\nMost used:\n")
		table := NewTable("KEYWORD", "CATEGORY", "USES")
		for _, r := range m.TopRules {
			table.Row(r.Keyword, r.CategoryName, fmt.Sprint(r.UsageCount))
		}
		b.WriteString(table.Render())
	}

	return RenderBox(ChartIcon+" Rule Metrics", strings.TrimRight(b.String(), "\n"))
}

// RenderCategories lists categories.
func RenderCategories(categories []model.Category) string {
	table := NewTable("ID", "NAME", "TYPE", "TAX", "DEDUCTIBLE")
	for _, c := range categories {
		deductible := ""
		if c.IsTaxDeductible() {
			deductible = SuccessIcon
		}
		table.Row(shortID(c.ID), c.Name, string(c.Type), string(c.TaxMapping), deductible)
	}
	return table.Render()
}

// RenderEntities lists registered entities.
func RenderEntities(entities []model.Entity) string {
	if len(entities) == 0 {
		return SubtleStyle.Render("No entities registered.")
	}

	table := NewTable("ID", "NAME", "TYPE", "COMPANY NO", "VAT", "DEFAULT")
	for _, e := range entities {
		def := ""
		if e.IsDefault {
			def = SuccessIcon
		}
		name := e.Name
		if e.TradingName != "" {
			name += SubtleStyle.Render(" t/a " + e.TradingName)
		}
		table.Row(e.ID, name, string(e.Type), e.CompanyNumber, e.VATNumber, def)
	}
	return table.Render()
}

// RenderMatch renders an entity resolution result.
func RenderMatch(result model.EntityMatchResult) string {
	var b strings.Builder

	switch {
	case result.AutoAssign:
		b.WriteString(FormatSuccess(fmt.Sprintf("Auto-assign to %s", result.BestMatch.EntityName)))
	case result.NeedsConfirmation:
		b.WriteString(FormatWarning(fmt.Sprintf("Confirm: looks like %s", result.BestMatch.EntityName)))
	default:
		b.WriteString(FormatInfo("Manual selection required"))
	}
	b.WriteString("\n")

	if result.Mismatch {
		b.WriteString(FormatWarning(fmt.Sprintf("Document does not match the selected entity %s", result.ContextEntityID)))
		b.WriteString("\n")
	}

	if len(result.Candidates) > 0 {
		b.WriteString("\n")
		table := NewTable("ENTITY", "TYPE", "CONF", "REASONS")
		for _, c := range result.Candidates {
			table.Row(
				c.EntityName,
				string(c.EntityType),
				ConfidenceStyle(c.Confidence, 0.9, 0.5).Render(fmt.Sprintf("%.0f%%", c.Confidence*100)),
				strings.Join(c.MatchReasons, "; "),
			)
		}
		b.WriteString(table.Render())
	}

	return RenderBox("Entity Match", strings.TrimRight(b.String(), "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
