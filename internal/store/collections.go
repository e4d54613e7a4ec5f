package store

import (
	"errors"
	"fmt"
)

// Collection names known to the dashboard.
const (
	CollectionPrinters        = "printers"
	CollectionInventory       = "inventory"
	CollectionOrders          = "orders"
	CollectionChanges         = "changes"
	CollectionLoans           = "loans"
	CollectionEmptyToners     = "emptyToners"
	CollectionUsers           = "users"
	CollectionOperators       = "operators"
	CollectionTonerModels     = "tonerModels"
	CollectionFuserModels     = "fuserModels"
	CollectionPrinterFusers   = "printerFusers"
	CollectionTickets         = "tickets"
	CollectionTicketTemplates = "ticketTemplates"
)

// knownCollections is the fixed enumeration order used by every write loop.
var knownCollections = []string{
	CollectionPrinters,
	CollectionInventory,
	CollectionOrders,
	CollectionChanges,
	CollectionLoans,
	CollectionEmptyToners,
	CollectionUsers,
	CollectionOperators,
	CollectionTonerModels,
	CollectionFuserModels,
	CollectionPrinterFusers,
	CollectionTickets,
	CollectionTicketTemplates,
}

// Collections returns the known collection names in enumeration order.
// The returned slice is a copy.
func Collections() []string {
	out := make([]string, len(knownCollections))
	copy(out, knownCollections)
	return out
}

// IsKnownCollection reports whether name is one of the known collections.
func IsKnownCollection(name string) bool {
	for _, c := range knownCollections {
		if c == name {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned by Get when no record has the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrCollectionUnavailable marks a failure of a whole collection (missing
	// table, lost connection) as opposed to a single record.
	ErrCollectionUnavailable = errors.New("collection unavailable")

	// ErrUnknownCollection is returned for collection names outside the known set.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrMissingID is returned when a record has no usable string id.
	ErrMissingID = errors.New("record has no id")

	// ErrDuplicateID is returned by Add and AddBatch when the id already exists.
	ErrDuplicateID = errors.New("duplicate record id")
)

// RecordID extracts the string id of a record.
func RecordID(record Record) (string, error) {
	if record == nil {
		return "", ErrMissingID
	}
	switch v := record["id"].(type) {
	case string:
		if v == "" {
			return "", ErrMissingID
		}
		return v, nil
	case fmt.Stringer:
		// json.Number ids from older artifacts
		s := v.String()
		if s == "" {
			return "", ErrMissingID
		}
		return s, nil
	default:
		return "", ErrMissingID
	}
}

// CheckCollection returns ErrUnknownCollection when name is not known.
func CheckCollection(name string) error {
	if !IsKnownCollection(name) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return nil
}
