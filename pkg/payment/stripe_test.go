package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"hireloop-billing/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestSanitizeStripeError(t *testing.T) {
	err := sanitize("transfer", &stripe.Error{
		Code:      stripe.ErrorCodeAccountInvalid,
		Msg:       "The account acct_123 has sensitive details attached",
		RequestID: "req_abc",
	})

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusBadGateway, be.Status())
	require.Contains(t, be.Error(), string(stripe.ErrorCodeAccountInvalid))
	require.NotContains(t, be.Error(), "acct_123", "raw gateway payloads never leave the logs")
}

func TestSanitizeDeadline(t *testing.T) {
	err := sanitize("transfer", fmt.Errorf("request aborted: %w", context.DeadlineExceeded))

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusTimeout, be.Status())
}

func TestSanitizeUnknownError(t *testing.T) {
	err := sanitize("account link", errors.New("connection reset"))

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusBadGateway, be.Status())
	require.NotContains(t, be.Error(), "connection reset")
}
