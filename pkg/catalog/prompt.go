package catalog

import (
	"sort"
	"strings"
)

// PromptBlock renders the "available functions" block of the system prompt.
// The block is derived from the catalog so it never drifts from the tools
// actually offered to the model.
func (c *Catalog) PromptBlock() string {
	var b strings.Builder
	b.WriteString("**Available Functions** (catalog ")
	b.WriteString(c.version)
	b.WriteString("):\n")
	for _, d := range c.list {
		b.WriteString("- `")
		b.WriteString(d.Name)
		b.WriteByte('(')
		b.WriteString(strings.Join(paramNames(d.Parameters), ", "))
		b.WriteString(")` - ")
		b.WriteString(d.Description)
		b.WriteByte('\n')
	}
	b.WriteString("\nCall at most one function per reply, and only when the user's request needs it. ")
	b.WriteString("Otherwise answer in plain text.\n")
	return b.String()
}

// paramNames lists required parameters first, then optional ones
// alphabetically.
func paramNames(s Schema) []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		names = append(names, r)
		seen[r] = true
	}
	optional := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		if !seen[k] {
			optional = append(optional, k)
		}
	}
	sort.Strings(optional)
	return append(names, optional...)
}
