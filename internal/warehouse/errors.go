package warehouse

import "errors"

// ErrUpstream marks failures of the warehouse itself: authentication,
// network, rejected or malformed queries, unreadable rows.
var ErrUpstream = errors.New("warehouse query failed")
