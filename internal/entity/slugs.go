package entity

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/transparencydata/payments-cli/internal/model"
)

// AssignSlugs derives a human-readable identifier for every entity
// from its name and location, qualified by origin when it differs
// from the default. Identical derived slugs get numeric suffixes in
// first-seen order; the first occurrence keeps the bare slug.
func (b *Builder) AssignSlugs(entities []*model.Entity) {
	seen := make(map[string]int)
	for _, e := range entities {
		e.SlugRaw = b.makeSlug(e)
		seen[e.SlugRaw]++
		if n := seen[e.SlugRaw]; n > 1 {
			e.Slug = fmt.Sprintf("%s-%d", e.SlugRaw, n-1)
		} else {
			e.Slug = e.SlugRaw
		}
	}
}

func (b *Builder) makeSlug(e *model.Entity) string {
	var parts []string
	if e.Name != nil {
		parts = append(parts, slug.Make(*e.Name))
	}
	if e.Location != nil {
		parts = append(parts, slug.Make(*e.Location))
	}
	if origin := strings.ToLower(e.Origin); origin != "" && origin != b.defaultOrigin {
		parts = append(parts, origin)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "-")
}
