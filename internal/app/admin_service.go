package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/clock"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// AdminRepository covers the registration workflows that live outside the
// transaction engine: asset and holder lifecycle. Status changes still go
// through GetAssetForUpdate so they cannot race an in-flight transaction.
type AdminRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateAsset(ctx context.Context, asset domain.Asset) error
	CreateHolder(ctx context.Context, holder domain.Holder) error
	GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error)
	GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error)
	GetAsset(ctx context.Context, assetID string) (domain.Asset, error)
	GetHolder(ctx context.Context, holderID string) (domain.Holder, error)
	HolderHasOpenEntry(ctx context.Context, holderID string) (bool, error)
	SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error
	SetHolderStatus(ctx context.Context, holderID string, status domain.HolderStatus) error
	SetHolderCanTransact(ctx context.Context, holderID string, canTransact bool) error
	DeleteAsset(ctx context.Context, assetID string) error
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListHolders(ctx context.Context, includeDeleted bool) ([]domain.Holder, error)
}

type AdminService struct {
	repo   AdminRepository
	audit  AuditTrail
	clock  clock.Clock
	logger *slog.Logger
}

func NewAdminService(repo AdminRepository, audit AuditTrail, clk clock.Clock, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{repo: repo, audit: audit, clock: clk, logger: logger}
}

type CreateAssetInput struct {
	Category     string
	SerialNumber string
	Condition    string
	OperatorID   string
}

func (s *AdminService) CreateAsset(ctx context.Context, in CreateAssetInput) (domain.Asset, error) {
	if in.SerialNumber == "" {
		return domain.Asset{}, domain.ErrSerialRequired
	}
	asset := domain.Asset{
		ID:           newID(),
		Category:     in.Category,
		SerialNumber: in.SerialNumber,
		Condition:    in.Condition,
		Status:       domain.AssetAvailable,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return domain.Asset{}, err
	}
	s.recordAudit(ctx, in.OperatorID, "register", domain.AuditTargetAsset, asset.ID,
		fmt.Sprintf("registered %s serial %s", asset.Category, asset.SerialNumber))
	return asset, nil
}

type CreateHolderInput struct {
	Name       string
	Rank       string
	OperatorID string
}

func (s *AdminService) CreateHolder(ctx context.Context, in CreateHolderInput) (domain.Holder, error) {
	if in.Name == "" {
		return domain.Holder{}, domain.ErrNameRequired
	}
	holder := domain.Holder{
		ID:          newID(),
		Name:        in.Name,
		Rank:        in.Rank,
		Status:      domain.HolderActive,
		CanTransact: true,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateHolder(ctx, holder); err != nil {
		return domain.Holder{}, err
	}
	s.recordAudit(ctx, in.OperatorID, "register", domain.AuditTargetHolder, holder.ID,
		fmt.Sprintf("registered holder %s", holder.Name))
	return holder, nil
}

// SetAssetStatus moves an asset between available, maintenance and retired.
// Issued is derived from the ledger and cannot be set directly, and an asset
// with an open issue cannot change state until it is returned.
func (s *AdminService) SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus, operatorID string) error {
	if !domain.ValidAssetStatus(status) || status == domain.AssetIssued {
		return domain.ErrInvalidStatus
	}
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		asset, err := s.repo.GetAssetForUpdate(txCtx, assetID)
		if err != nil {
			return err
		}
		if asset.Status == domain.AssetIssued {
			return domain.ErrAssetIssued
		}
		return s.repo.SetAssetStatus(txCtx, assetID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, operatorID, "set_status", domain.AuditTargetAsset, assetID,
		fmt.Sprintf("status set to %s", status))
	return nil
}

// SetHolderStatus covers deactivation, reactivation and soft deletion.
// A holder with an open take cannot be soft-deleted: a deleted holder can no
// longer return, which would strand the asset as issued. Deactivation stays
// allowed; inactive holders can still return what they hold. Takes issued
// against the holder remain in history either way.
func (s *AdminService) SetHolderStatus(ctx context.Context, holderID string, status domain.HolderStatus, operatorID string) error {
	if !domain.ValidHolderStatus(status) {
		return domain.ErrInvalidStatus
	}
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetHolderForUpdate(txCtx, holderID); err != nil {
			return err
		}
		if status == domain.HolderDeleted {
			open, err := s.repo.HolderHasOpenEntry(txCtx, holderID)
			if err != nil {
				return err
			}
			if open {
				return domain.ErrHolderAlreadyHolding
			}
		}
		return s.repo.SetHolderStatus(txCtx, holderID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, operatorID, "set_status", domain.AuditTargetHolder, holderID,
		fmt.Sprintf("status set to %s", status))
	return nil
}

func (s *AdminService) SetHolderCanTransact(ctx context.Context, holderID string, canTransact bool, operatorID string) error {
	if err := s.repo.SetHolderCanTransact(ctx, holderID, canTransact); err != nil {
		return err
	}
	s.recordAudit(ctx, operatorID, "set_eligibility", domain.AuditTargetHolder, holderID,
		fmt.Sprintf("can_transact set to %t", canTransact))
	return nil
}

// DeleteAsset removes an asset that has never moved. Assets referenced by
// ledger entries are protected by the storage layer and surface ErrAssetInUse.
func (s *AdminService) DeleteAsset(ctx context.Context, assetID, operatorID string) error {
	if err := s.repo.DeleteAsset(ctx, assetID); err != nil {
		return err
	}
	s.recordAudit(ctx, operatorID, "delete", domain.AuditTargetAsset, assetID, "asset deleted")
	return nil
}

func (s *AdminService) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
	if assetID == "" {
		return domain.Asset{}, domain.ErrInvalidID
	}
	return s.repo.GetAsset(ctx, assetID)
}

func (s *AdminService) GetHolder(ctx context.Context, holderID string) (domain.Holder, error) {
	if holderID == "" {
		return domain.Holder{}, domain.ErrInvalidID
	}
	return s.repo.GetHolder(ctx, holderID)
}

func (s *AdminService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.repo.ListAssets(ctx)
}

func (s *AdminService) ListHolders(ctx context.Context, includeDeleted bool) ([]domain.Holder, error) {
	return s.repo.ListHolders(ctx, includeDeleted)
}

func (s *AdminService) recordAudit(ctx context.Context, actorID, action, targetType, targetID, details string) {
	if s.audit == nil {
		return
	}
	event := domain.AuditEvent{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn("audit record failed", "target_type", targetType, "target_id", targetID, "err", err)
	}
}
