// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPerPage is the page size used when the request does not ask for one.
const DefaultPerPage = 50

// MaxPerPage caps the page size a request can ask for.
const MaxPerPage = 200

// Params holds offset pagination parameters for list queries.
type Params struct {
	Page    int
	PerPage int
}

// Default returns the first page with the default size.
func Default() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads the "page" and "per_page" query parameters. Missing or
// invalid values fall back to the defaults; per_page is clamped to MaxPerPage.
func FromRequest(r *http.Request) Params {
	p := Default()
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 {
		p.PerPage = n
		if p.PerPage > MaxPerPage {
			p.PerPage = MaxPerPage
		}
	}
	return p
}

// Skip returns the number of documents to skip for this page.
func (p Params) Skip() int64 {
	return int64(p.Page-1) * int64(p.PerPage)
}

// Limit returns the page size as int64 for Find().SetLimit.
func (p Params) Limit() int64 {
	return int64(p.PerPage)
}

// Apply sets skip and limit on Mongo find options.
func (p Params) Apply(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(p.Limit())
}
