package table

import "errors"

// Rule violations surfaced to API callers. The registry itself stays on
// soft-failure ok results; these exist so the boundary can answer with a
// stable error identity.
var (
	ErrCardNotFound    = errors.New("card not found")
	ErrNotAttached     = errors.New("card is not attached")
	ErrCannotAttach    = errors.New("cannot attach")
	ErrCannotDrag      = errors.New("cannot drag card")
	ErrSessionNotFound = errors.New("drag session not found")
	ErrUnknownCommand  = errors.New("unknown command")
)
