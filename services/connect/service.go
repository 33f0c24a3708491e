package connect

import (
	"context"
	"errors"
	"time"

	"hireloop-billing/pkg/errutil"
	"hireloop-billing/pkg/payment"
	"hireloop-billing/pkg/rediskey"
	"hireloop-billing/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const accountCacheTTL = 10 * time.Minute

type Service struct {
	node    *snowflake.Node
	gateway payment.Gateway
	// cache is optional; when nil every lookup goes to the database.
	cache    *redis.Client
	accounts repository.Repository[PayoutAccount]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Redis   *redis.Client
	Gateway payment.Gateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		gateway:  p.Gateway,
		cache:    p.Redis,
		accounts: repository.ProvideStore[PayoutAccount](p.DB),
	}
}

type OnboardResult struct {
	AccountID     string `json:"account_id"`
	OnboardingURL string `json:"onboarding_url"`
}

// Onboard creates a connected account for the recruiter if one does not exist
// yet and returns a fresh onboarding link. Re-invoking for an onboarded
// recruiter just mints a new link for the existing account.
func (s *Service) Onboard(ctx context.Context, recruiterID string) (*OnboardResult, error) {
	if recruiterID == "" {
		return nil, errutil.BadRequest("recruiter_id is required", nil)
	}

	account, err := s.accounts.FindOne(ctx, &PayoutAccount{RecruiterID: recruiterID})
	if err != nil {
		return nil, err
	}

	var accountID string
	if account != nil {
		accountID = account.StripeAccountID
	} else {
		accountID, err = s.gateway.CreateAccount(ctx)
		if err != nil {
			return nil, err
		}

		if err := s.accounts.Create(ctx, &PayoutAccount{
			ID:              s.node.Generate().String(),
			RecruiterID:     recruiterID,
			StripeAccountID: accountID,
		}); err != nil {
			return nil, err
		}

		zap.L().Info("created connected account",
			zap.String("recruiter_id", recruiterID),
			zap.String("account_id", accountID),
		)
	}

	s.cacheAccount(ctx, recruiterID, accountID)

	url, err := s.gateway.AccountLink(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &OnboardResult{AccountID: accountID, OnboardingURL: url}, nil
}

// Status delegates to the gateway and refreshes the stored payouts-enabled
// snapshot when the account is known locally.
func (s *Service) Status(ctx context.Context, accountID string) (*payment.AccountStatus, error) {
	status, err := s.gateway.AccountStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.UpdateMatching(ctx,
		&PayoutAccount{StripeAccountID: accountID},
		map[string]any{"payouts_enabled": status.PayoutsEnabled},
	); err != nil {
		zap.L().Warn("failed to refresh payouts_enabled snapshot",
			zap.String("account_id", accountID), zap.Error(err))
	}

	return status, nil
}

// ConnectAccountID implements the payout engine's AccountResolver. Hits the
// cache first; absence is never cached so a freshly onboarded recruiter is
// visible immediately.
func (s *Service) ConnectAccountID(ctx context.Context, recruiterID string) (string, error) {
	key := rediskey.BuildPayoutAccountKey(recruiterID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("payout account cache lookup failed",
				zap.String("recruiter_id", recruiterID), zap.Error(err))
		}
	}

	account, err := s.accounts.FindOne(ctx, &PayoutAccount{RecruiterID: recruiterID})
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", nil
	}

	s.cacheAccount(ctx, recruiterID, account.StripeAccountID)
	return account.StripeAccountID, nil
}

func (s *Service) cacheAccount(ctx context.Context, recruiterID, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rediskey.BuildPayoutAccountKey(recruiterID), accountID, accountCacheTTL).Err(); err != nil {
		zap.L().Warn("failed to cache payout account",
			zap.String("recruiter_id", recruiterID), zap.Error(err))
	}
}
