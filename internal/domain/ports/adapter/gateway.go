package adapter

import "context"

// CollectResult is the gateway's answer to a collect request.
type CollectResult struct {
	Reference string // aggregator transaction reference
	RawStatus string // upstream status string, usually "PENDING" at this point
	Operator  string
	USSDCode  string // dial code the buyer must confirm on their handset, if any
	Payload   map[string]interface{}
}

// TransactionStatus is the gateway's view of a previously initiated collection.
type TransactionStatus struct {
	RawStatus string
	Reason    string
	Payload   map[string]interface{}
}

// PaymentGateway talks to the external mobile-money aggregator. Implementations
// must not mutate local state; they only perform the outbound call. Network and
// 5xx failures surface as domain.ErrGatewayUnavailable (retryable), other
// rejections as domain.ErrGatewayRejected with the raw body attached.
type PaymentGateway interface {
	Name() string
	// Collect asks the aggregator to debit `from` (a normalized 237… MSISDN).
	Collect(ctx context.Context, amount int64, currency, from, description, externalRef string) (*CollectResult, error)
	// QueryStatus re-reads the transaction from the aggregator.
	QueryStatus(ctx context.Context, reference string) (*TransactionStatus, error)
}
