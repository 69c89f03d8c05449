package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/clock"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/metrics"
)

// LedgerRepository is the storage surface the transaction engine needs. The
// *ForUpdate reads must hold exclusive row locks until the surrounding
// transaction ends; implementations lock the asset row before the holder row.
type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error)
	GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error)
	OpenEntryForAsset(ctx context.Context, assetID string) (*domain.LedgerEntry, error)
	OpenEntryForHolder(ctx context.Context, holderID string) (*domain.LedgerEntry, error)
	InsertEntry(ctx context.Context, entry domain.LedgerEntry) error
	SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error
}

// AuditTrail records mutation events. Implementations must be append-only;
// the service treats failures as best-effort and never rolls back for them.
type AuditTrail interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

type LedgerService struct {
	repo    LedgerRepository
	audit   AuditTrail
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLedgerService(repo LedgerRepository, audit AuditTrail, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		repo:    repo,
		audit:   audit,
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

type TransactionInput struct {
	HolderID   string
	AssetID    string
	Action     domain.Action
	OperatorID string
	Magazines  int
	Rounds     int
	Purpose    string
}

// RecordTransaction validates and appends one take/return event as a single
// atomic unit: lock the asset row, then the holder row, re-read state under
// lock, check the issue/return rules, insert the immutable entry and persist
// the derived asset status. On any rejection nothing is written. The audit
// event is emitted after commit and never undoes a committed transaction.
func (s *LedgerService) RecordTransaction(ctx context.Context, in TransactionInput) (domain.LedgerEntry, error) {
	if in.AssetID == "" || in.HolderID == "" {
		return domain.LedgerEntry{}, s.reject(in, domain.ErrInvalidID)
	}
	if !domain.ValidAction(in.Action) {
		return domain.LedgerEntry{}, s.reject(in, domain.ErrInvalidAction)
	}
	if err := domain.ValidateMetadata(in.Magazines, in.Rounds); err != nil {
		return domain.LedgerEntry{}, s.reject(in, err)
	}

	now := s.clock.Now()
	var entry domain.LedgerEntry

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.repo.GetAssetForUpdate(txCtx, in.AssetID)
		if err != nil {
			return err
		}
		holder, err := s.repo.GetHolderForUpdate(txCtx, in.HolderID)
		if err != nil {
			return err
		}

		switch in.Action {
		case domain.ActionTake:
			openForAsset, err := s.repo.OpenEntryForAsset(txCtx, asset.ID)
			if err != nil {
				return err
			}
			openForHolder, err := s.repo.OpenEntryForHolder(txCtx, holder.ID)
			if err != nil {
				return err
			}
			if err := domain.ValidateTake(asset, holder, openForAsset, openForHolder); err != nil {
				return err
			}
		case domain.ActionReturn:
			openForAsset, err := s.repo.OpenEntryForAsset(txCtx, asset.ID)
			if err != nil {
				return err
			}
			if err := domain.ValidateReturn(holder, openForAsset); err != nil {
				return err
			}
		}

		entry = domain.LedgerEntry{
			ID:         newEntryID(),
			AssetID:    asset.ID,
			HolderID:   holder.ID,
			Action:     in.Action,
			OccurredAt: now,
			OperatorID: in.OperatorID,
			Magazines:  in.Magazines,
			Rounds:     in.Rounds,
			Purpose:    in.Purpose,
		}
		if err := s.repo.InsertEntry(txCtx, entry); err != nil {
			return err
		}
		return s.repo.SetAssetStatus(txCtx, asset.ID, domain.DeriveAssetStatus(asset.Status, in.Action == domain.ActionTake))
	})
	if err != nil {
		if errors.Is(err, domain.ErrLedgerGuard) {
			// The application checks above should make this unreachable; a
			// guard hit means some write path bypassed them.
			s.metrics.GuardViolation()
			s.logger.Error("ledger guard rejected a validated write",
				"asset_id", in.AssetID, "holder_id", in.HolderID, "action", string(in.Action), "err", err)
		}
		return domain.LedgerEntry{}, s.reject(in, err)
	}

	s.metrics.TransactionRecorded(string(in.Action))
	s.recordAudit(ctx, entry)
	return entry, nil
}

func (s *LedgerService) reject(in TransactionInput, err error) error {
	s.metrics.TransactionRejected(string(in.Action), domain.ErrorCode(err))
	return err
}

func (s *LedgerService) recordAudit(ctx context.Context, entry domain.LedgerEntry) {
	if s.audit == nil {
		return
	}
	event := domain.AuditEvent{
		ActorID:    entry.OperatorID,
		Action:     string(entry.Action),
		TargetType: domain.AuditTargetAsset,
		TargetID:   entry.AssetID,
		Details:    fmt.Sprintf("%s by holder %s (entry %s)", entry.Action, entry.HolderID, entry.ID),
		CreatedAt:  entry.OccurredAt,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.metrics.AuditFailure()
		s.logger.Warn("audit record failed",
			"entry_id", entry.ID, "asset_id", entry.AssetID, "err", err)
	}
}
