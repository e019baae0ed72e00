package report

import "errors"

// ErrNotFound indicates no report matched the lookup.
var ErrNotFound = errors.New("report: not found")
