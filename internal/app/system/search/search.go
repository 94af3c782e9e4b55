// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FoldQuery normalizes a free-text search query the same way name_ci fields
// are stored: trimmed, case-folded, accents stripped.
func FoldQuery(q string) string {
	return text.Fold(strings.TrimSpace(q))
}

// NameFilter builds a Mongo filter matching folded names containing q.
// An empty query returns nil so callers can skip the clause.
func NameFilter(q string) bson.M {
	folded := FoldQuery(q)
	if folded == "" {
		return nil
	}
	return bson.M{"name_ci": primitive.Regex{
		Pattern: regexp.QuoteMeta(folded),
	}}
}
