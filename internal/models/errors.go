package models

import "fmt"

// NotFoundError reports an unknown KPI or alert id referenced by a caller.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// PersistenceError wraps a failed read or write against the remote store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CollectionError wraps a failed value computation for a KPI.
type CollectionError struct {
	KPIID string
	Err   error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection failed for KPI %q: %v", e.KPIID, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// NotificationError wraps a failed dispatch on a single channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
