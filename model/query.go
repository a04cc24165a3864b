package model

// Order is the sort direction for a paginated query.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	defaultLimit = 100
	minLimit     = 1
	maxLimit     = 1000
)

// QueryOptions controls pagination for query_by_space, query_by_type, and
// query_by_time. Limit and Cursor are pointers so that "not supplied" (nil)
// is distinguishable from an explicit zero value: an unsupplied limit
// defaults to 100, while an explicit 0 clamps up to 1.
type QueryOptions struct {
	Limit  *int
	Cursor *string
	Order  Order
}

// NormalizedOptions holds the resolved, clamped inputs a query
// implementation reads after defaulting.
type NormalizedOptions struct {
	Limit  int
	Cursor string
	Order  Order
}

// Normalize applies defaults and clamps Limit into [1, 1000]: an absent
// limit becomes 100, an explicit 0 becomes 1, anything above 1000 becomes
// 1000.
func (opts QueryOptions) Normalize() NormalizedOptions {
	out := NormalizedOptions{Order: OrderAsc}

	switch {
	case opts.Limit == nil:
		out.Limit = defaultLimit
	case *opts.Limit < minLimit:
		out.Limit = minLimit
	case *opts.Limit > maxLimit:
		out.Limit = maxLimit
	default:
		out.Limit = *opts.Limit
	}

	if opts.Cursor != nil {
		out.Cursor = *opts.Cursor
	}

	if opts.Order == OrderDesc {
		out.Order = OrderDesc
	}

	return out
}

// PaginatedResult is the uniform output shape of the three query
// operations: a page of items, an opaque cursor for the next page (absent
// once exhausted), and the total count matching the query's filter.
type PaginatedResult[T any] struct {
	Items      []T
	NextCursor string
	Total      int64
}

// Cursor is the decoded form of the opaque pagination token: a
// (sequence_number, id) position. It is base64-encoded for transport.
type Cursor struct {
	SequenceNumber int64
	ID             string
}
