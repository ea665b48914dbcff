package history

import "errors"

var (
	// ErrHistoryDisabled is returned when history operations target a
	// container that was built without the history extension.
	ErrHistoryDisabled = errors.New("history is not enabled for this container")

	// ErrTransactionActive is returned for undo, redo, or a nested
	// transaction while a transaction is open on the container.
	ErrTransactionActive = errors.New("transaction in progress")
)
