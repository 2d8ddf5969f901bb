package request

import (
	"fmt"
	"net/http"
	"strconv"
)

// MaxListingLimit caps the limit accepted by schema discovery endpoints.
const MaxListingLimit = 1000

// Listing holds the search term and limit of a schema discovery request.
// A zero limit selects the server default.
type Listing struct {
	Search string
	Limit  int
}

// ParseListing extracts search and limit from the query string.
func ParseListing(r *http.Request) (Listing, error) {
	l := Listing{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Listing{}, fmt.Errorf("invalid limit %q", raw)
		}
		l.Limit = min(n, MaxListingLimit)
	}
	return l, nil
}
