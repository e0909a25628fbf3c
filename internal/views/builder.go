package views

import (
	"strings"

	"github.com/lumenmart/prodsearch/internal/core"
)

const (
	// maxViewChars caps every view text before it reaches the embedding
	// provider; the provider applies its own tighter budget on top.
	maxViewChars = 2000

	// maxAttributeFeatures bounds how many feature strings go into the
	// attribute view so a long spec sheet cannot drown the title.
	maxAttributeFeatures = 5
)

// Build derives the textual views for a product: an attribute view for
// specification-style matches, a description view for narrative matches,
// and a keyword view when the product carries keyword metadata. A product
// missing both title and description yields core.ErrMalformedProduct
// rather than an empty set, so it is never indexed as a garbage vector.
func Build(p core.Product) (map[core.ViewKind]string, error) {
	title := clean(p.Title)
	description := clean(p.Description)

	if title == "" && description == "" {
		return nil, core.ErrMalformedProduct
	}

	out := make(map[core.ViewKind]string, 3)

	if text := attributeText(title, p); text != "" {
		out[core.ViewAttribute] = truncate(text, maxViewChars)
	}
	if description != "" {
		out[core.ViewDescription] = truncate(join(title, description), maxViewChars)
	}
	if text := keywordText(p); text != "" {
		out[core.ViewKeyword] = truncate(text, maxViewChars)
	}

	return out, nil
}

// BuildAll converts the view map into View records for a product.
func BuildAll(p core.Product) ([]core.View, error) {
	texts, err := Build(p)
	if err != nil {
		return nil, err
	}
	views := make([]core.View, 0, len(texts))
	for _, kind := range core.AllViewKinds {
		text, ok := texts[kind]
		if !ok {
			continue
		}
		views = append(views, core.View{ProductID: p.ID, Kind: kind, Text: text})
	}
	return views, nil
}

// attributeText assembles title + features + category.
func attributeText(title string, p core.Product) string {
	features := cleanList(p.Features, maxAttributeFeatures)
	if title == "" && len(features) == 0 {
		return ""
	}
	return join(title, strings.Join(features, ". "), clean(p.Category))
}

// keywordText builds the short comma-joined keyword string. Explicit
// keywords win; features stand in when no keywords were extracted.
func keywordText(p core.Product) string {
	keywords := cleanList(p.Keywords, 0)
	if len(keywords) == 0 {
		keywords = cleanList(p.Features, maxAttributeFeatures)
	}
	return strings.Join(keywords, ", ")
}

// clean collapses internal whitespace and trims the string.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanList(items []string, max int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if c := clean(item); c != "" {
			out = append(out, c)
		}
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

func join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// truncate cuts the text to at most max runes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
