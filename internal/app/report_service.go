package app

import (
	"context"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// ReportRepository answers the read-only queries consumed by reporting and
// the UI. It carries no invariant responsibility; deleted holders stay
// visible in history so old entries remain resolvable.
type ReportRepository interface {
	ListOpenHoldings(ctx context.Context) ([]domain.OpenHolding, error)
	AssetHistory(ctx context.Context, assetID string) ([]domain.LedgerEntry, error)
	HolderHistory(ctx context.Context, holderID string) ([]domain.LedgerEntry, error)
}

type ReportService struct {
	repo ReportRepository
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

func (s *ReportService) ListOpenHoldings(ctx context.Context) ([]domain.OpenHolding, error) {
	return s.repo.ListOpenHoldings(ctx)
}

func (s *ReportService) AssetHistory(ctx context.Context, assetID string) ([]domain.LedgerEntry, error) {
	if assetID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.AssetHistory(ctx, assetID)
}

func (s *ReportService) HolderHistory(ctx context.Context, holderID string) ([]domain.LedgerEntry, error) {
	if holderID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.HolderHistory(ctx, holderID)
}
