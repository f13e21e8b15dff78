package cli

import (
	"errors"
	"fmt"

	"daygrid/internal/store"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// storeErr turns store sentinels into the CLI's not-found shape.
func storeErr(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrEventNotFound):
		return errNotFound("event", id)
	case errors.Is(err, store.ErrCalendarNotFound):
		return errNotFound("calendar", id)
	default:
		return err
	}
}
