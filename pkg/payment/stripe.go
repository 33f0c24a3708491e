package payment

import (
	"context"
	"errors"
	"fmt"

	"hireloop-billing/pkg/config"
	"hireloop-billing/pkg/errutil"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(NewStripeGateway),
)

// StripeGateway talks to Stripe Connect: express accounts for recruiter
// onboarding and transfers for payouts.
type StripeGateway struct {
	api *client.API
	cfg *config.Config
}

func NewStripeGateway(cfg *config.Config) Gateway {
	api := &client.API{}
	api.Init(cfg.Stripe.APIKey, nil)
	return &StripeGateway{api: api, cfg: cfg}
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(currency),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	tr, err := g.api.Transfers.New(params)
	if err != nil {
		return nil, sanitize("transfer", err)
	}

	return &TransferResult{TransferID: tr.ID}, nil
}

func (g *StripeGateway) CreateAccount(ctx context.Context) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
	}
	params.Context = ctx

	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return "", sanitize("account creation", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) AccountLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(g.cfg.Stripe.ConnectRefreshURL),
		ReturnURL:  stripe.String(g.cfg.Stripe.ConnectReturnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", sanitize("account link", err)
	}
	return link.URL, nil
}

func (g *StripeGateway) AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := g.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, sanitize("account status", err)
	}

	return &AccountStatus{
		AccountID:        acct.ID,
		PayoutsEnabled:   acct.PayoutsEnabled,
		ChargesEnabled:   acct.ChargesEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

// sanitize maps a Stripe error to a domain error whose message is safe to
// store and return; raw gateway payloads stay in the logs only.
func sanitize(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		zap.L().Error("stripe request failed",
			zap.String("op", op),
			zap.String("stripe_code", string(stripeErr.Code)),
			zap.String("request_id", stripeErr.RequestID),
			zap.Error(err),
		)
		return errutil.BadGateway(fmt.Sprintf("stripe %s failed (%s)", op, stripeErr.Code), nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errutil.Timeout(fmt.Sprintf("stripe %s timed out", op), nil)
	}

	zap.L().Error("stripe request failed", zap.String("op", op), zap.Error(err))
	return errutil.BadGateway(fmt.Sprintf("stripe %s failed", op), nil)
}
