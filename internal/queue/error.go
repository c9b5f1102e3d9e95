package queue

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownQueueError is returned when a queue name is not in the catalog.
type UnknownQueueError struct {
	Name  string   // Requested queue name
	Known []string // Queue names available in the catalog
}

func (e *UnknownQueueError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown queue %q", e.Name)
	}
	return fmt.Sprintf("unknown queue %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// IsUnknownQueueError checks if an error is an UnknownQueueError
func IsUnknownQueueError(err error) bool {
	var uq *UnknownQueueError
	return errors.As(err, &uq)
}
