package ports

import (
	"context"

	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
)

type PayoutService interface {
	GetPayouts(ctx context.Context, query domain.PayoutQuery) ([]domain.Payout, error)
	MarkPaid(ctx context.Context, storeId, payoutId string, req domain.MarkPayoutRequest) error
}
