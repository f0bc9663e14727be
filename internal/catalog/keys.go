// Package catalog implements the cached, paginated product listing and the
// namespace-wide invalidation that follows every write.
//
// Known race: a reader that queried the backing store before a write commits
// can store its pre-write page after the writer's purge has run. That entry
// stays stale until its TTL expires. Nothing here prevents it.
package catalog

import (
	"fmt"
	"math"
)

// DefaultNamespace is the cache namespace of the product collection.
const DefaultNamespace = "products"

// Query selects one page of the collection.
type Query struct {
	Page  int
	Limit int
}

// NewQuery clamps page and limit to at least 1. A zero limit means the
// caller sent none and defaultLimit applies.
func NewQuery(page, limit, defaultLimit int) Query {
	if defaultLimit < 1 {
		defaultLimit = 1
	}
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	return Query{Page: page, Limit: limit}
}

// Skip is the number of records before the page. It saturates at
// math.MaxInt instead of wrapping for pages far past the end.
func (q Query) Skip() int {
	if q.Limit > 0 && q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// PageKey is the cache key of one (page, limit) pair inside namespace.
func PageKey(namespace string, q Query) string {
	return fmt.Sprintf("%s:page:%d:limit:%d", namespace, q.Page, q.Limit)
}

// NamespacePattern matches every page key of namespace.
func NamespacePattern(namespace string) string {
	return namespace + ":page:*"
}

// TotalPages is ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
