package circuit

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation reports a puzzle that does not fit the circuit's fixed layout.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrProtocol reports a request missing data the circuit needs.
	ErrProtocol = errors.New("malformed request")
)

func schemaViolation(field string, got, limit int) error {
	return fmt.Errorf("%w: %s has %d entries, capacity is %d", ErrSchemaViolation, field, got, limit)
}

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
