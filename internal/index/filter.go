package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenmart/prodsearch/internal/core"
)

// BuildFilterExpr converts metadata filters into a Milvus boolean filter
// expression. All bounds are inclusive. Returns "" when nothing is set.
func BuildFilterExpr(f *core.Filters) string {
	if f == nil {
		return ""
	}

	var parts []string
	if f.Category != "" {
		parts = append(parts, fmt.Sprintf("%s == \"%s\"", FieldCategory, escape(f.Category)))
	}
	if f.MinPrice != nil {
		parts = append(parts, fmt.Sprintf("%s >= %s", FieldPrice, formatFloat(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("%s <= %s", FieldPrice, formatFloat(*f.MaxPrice)))
	}
	if f.MinRating != nil {
		parts = append(parts, fmt.Sprintf("%s >= %s", FieldRating, formatFloat(*f.MinRating)))
	}

	return strings.Join(parts, " and ")
}

// escape makes a string safe to embed in a double-quoted expression literal.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quoteKinds(kinds []core.ViewKind) string {
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = fmt.Sprintf("\"%s\"", escape(string(k)))
	}
	return strings.Join(quoted, ", ")
}
