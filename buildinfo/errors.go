package buildinfo

import "fmt"

// NotFoundError reports metadata that the source does not know about.
type NotFoundError struct {
	What  string
	Key   string
	Build int
}

func (e *NotFoundError) Error() string {
	if e.Build != 0 {
		return fmt.Sprintf("%s %q %d not found", e.What, e.Key, e.Build)
	}

	return fmt.Sprintf("%s %q not found", e.What, e.Key)
}

// QueryError wraps a failed database query.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("error running query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
