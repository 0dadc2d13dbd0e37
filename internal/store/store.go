package store

import (
	"context"

	"uncomtrade/internal/model"
)

type Store interface {
	UpsertRecords(ctx context.Context, records []model.TradeRecord) error
	ListRecords(ctx context.Context, reporterCode, partnerCode string) ([]model.TradeRecord, error)
	Close() error
}

type NopStore struct{}

func (s *NopStore) UpsertRecords(ctx context.Context, records []model.TradeRecord) error {
	_ = ctx
	_ = records
	return nil
}

func (s *NopStore) ListRecords(ctx context.Context, reporterCode, partnerCode string) ([]model.TradeRecord, error) {
	_ = ctx
	_ = reporterCode
	_ = partnerCode
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
