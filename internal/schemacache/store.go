// Package schemacache caches database and table listings per integration.
//
// An entry expires at the earlier of its absolute deadline (created plus
// AbsoluteTTL) and its sliding deadline (last read plus SlidingTTL). A read
// hit moves the sliding deadline forward.
package schemacache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	AbsoluteTTL = 5 * time.Minute
	SlidingTTL  = 2 * time.Minute
)

// Store is a concurrency-safe cache of name listings.
type Store interface {
	Get(ctx context.Context, key Key) ([]string, bool)
	Set(ctx context.Context, key Key, values []string)
}

// Key identifies one listing. Database is empty for database listings.
type Key struct {
	IntegrationID string
	Tables        bool
	Database      string
	Search        string
	Limit         int
}

func DatabasesKey(integrationID, search string, limit int) Key {
	return Key{IntegrationID: integrationID, Search: search, Limit: limit}
}

func TablesKey(integrationID, database, search string, limit int) Key {
	return Key{IntegrationID: integrationID, Tables: true, Database: database, Search: search, Limit: limit}
}

// String renders the key with "all" for an empty search and 0 for no limit.
// A non-empty search is quoted so a literal "all" stays distinct.
func (k Key) String() string {
	search := "all"
	if k.Search != "" {
		search = strconv.Quote(k.Search)
	}
	limit := strconv.Itoa(max(k.Limit, 0))
	if k.Tables {
		return fmt.Sprintf("%s:tables:%s:%s:%s", k.IntegrationID, strconv.Quote(k.Database), search, limit)
	}
	return fmt.Sprintf("%s:databases:%s:%s", k.IntegrationID, search, limit)
}

// Clock returns the current time.
type Clock func() time.Time

func expiresAt(created, lastRead time.Time) time.Time {
	absolute := created.Add(AbsoluteTTL)
	sliding := lastRead.Add(SlidingTTL)
	if sliding.Before(absolute) {
		return sliding
	}
	return absolute
}

func cloneValues(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
