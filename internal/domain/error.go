package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrForfaitNotFound    = errors.New("forfait not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrAlreadyActive      = errors.New("product already has an active forfait")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPriceTooLow        = errors.New("forfait price below gateway minimum")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidMethod      = errors.New("unsupported payment method")
	ErrPaymentTerminal    = errors.New("payment already in a terminal state")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")

	// Infrastructure-level errors surfaced by repositories
	ErrInvalidExecContext = errors.New("invalid execution context for query")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
