package domain

import "context"

type Repository interface {
	ListTradeOverrides(ctx context.Context) ([]TradeOverride, error)
	UpsertTradeOverride(ctx context.Context, override TradeOverride) error
}
