package payment

import "context"

// TransferRequest describes one idempotent transfer of a fixed amount to a
// connected account. AmountMinor is in the network's minor unit (cents).
type TransferRequest struct {
	AmountMinor    int64
	Currency       string
	Destination    string
	IdempotencyKey string
	Metadata       map[string]string
}

type TransferResult struct {
	TransferID string
}

type AccountStatus struct {
	AccountID        string `json:"account_id"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// Gateway is the payment network boundary. Implementations must honour the
// idempotency key: retrying a request with the same key never produces a
// second transfer.
type Gateway interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	CreateAccount(ctx context.Context) (string, error)
	AccountLink(ctx context.Context, accountID string) (string, error)
	AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)
}
