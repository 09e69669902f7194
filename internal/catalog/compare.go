package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// maxOptions caps each side of the comparison.
const maxOptions = 5

// Compare renders the bundles with more and less data than the customer's
// current allowance. It returns "" when allowanceRaw is not a positive
// integer or when no bundle differs from it.
func Compare(plan, allowanceRaw string, entries []Entry) string {
	allowanceRaw = strings.TrimSpace(allowanceRaw)
	if !isDigits(allowanceRaw) {
		return ""
	}
	current, err := strconv.Atoi(allowanceRaw)
	if err != nil || current <= 0 {
		return ""
	}

	var more, less []Entry
	for _, e := range entries {
		switch {
		case e.QuotaMB > current:
			more = append(more, e)
		case e.QuotaMB < current:
			less = append(less, e)
		}
	}
	if len(more) == 0 && len(less) == 0 {
		return ""
	}
	slices.SortStableFunc(more, func(a, b Entry) int { return a.QuotaMB - b.QuotaMB })
	slices.SortStableFunc(less, func(a, b Entry) int { return b.QuotaMB - a.QuotaMB })

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\n**User's Current Plan: %s with %d MB.**\n**Available Bundle Options Relative to Current Plan:**\n", plan, current)
	if len(more) > 0 {
		fmt.Fprintf(&sb, "More data: %s\n", formatOptions(more))
	}
	if len(less) > 0 {
		fmt.Fprintf(&sb, "Less data: %s\n", formatOptions(less))
	}
	return sb.String()
}

func formatOptions(entries []Entry) string {
	if len(entries) > maxOptions {
		entries = entries[:maxOptions]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%d MB for %s EGP)", e.Name, e.QuotaMB, FormatPrice(e.PriceEGP))
	}
	return strings.Join(parts, "; ")
}

// FormatPrice renders a price in its shortest decimal form, or "N/A".
func FormatPrice(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
