package eventstore

import (
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Sentinel errors for event store operations. Callers match them with
// errors.Is; the concrete errors wrap the driver error.
var (
	ErrDatabaseOpenFailed     = errors.EventStoreError("could not open event store database").Build()
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event store schema").Build()
	ErrEventAppendFailed      = errors.EventStoreError("failed to append event to store").Build()
	ErrEventQueryFailed       = errors.EventStoreError("failed to query events from store").Build()
	ErrEventScanFailed        = errors.EventStoreError("failed to scan event rows").Build()
	ErrMarshalPayloadFailed   = errors.EventStoreError("failed to marshal event payload").Build()
	ErrPruneFailed            = errors.EventStoreError("failed to prune old events").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.EventStoreError(sentinel.Message()).WithCause(cause).Build()
}
