package service

import (
	"context"
	"errors"
	"strings"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FamilyService struct {
	DB         *gorm.DB
	UserRepo   *repository.UserRepository
	FamilyRepo *repository.FamilyRepository
	Guard      *Guard
}

func NewFamilyService(db *gorm.DB, guard *Guard) *FamilyService {
	return &FamilyService{
		DB:         db,
		UserRepo:   guard.UserRepo,
		FamilyRepo: guard.FamilyRepo,
		Guard:      guard,
	}
}

type CreateChildRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// CreateChild creates a CHILD account linked to the calling parent.
func (s *FamilyService) CreateChild(ctx context.Context, caller util.Identity, req CreateChildRequest) (*model.User, error) {
	const op = "CreateChild"
	if err := requireParent(op, caller); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, util.Validation(op, "username is required")
	}
	display := strings.TrimSpace(req.DisplayName)
	if display == "" {
		display = username
	}

	child := &model.User{
		Username:    username,
		DisplayName: display,
		Avatar:      req.Avatar,
		Role:        model.Child,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).Create(ctx, child); err != nil {
			return err
		}
		return s.FamilyRepo.WithTx(tx).Link(ctx, caller.UserID, child.ID)
	})
	if util.IsDuplicateKey(err) {
		return nil, util.Validation(op, "username is already taken")
	}
	if err != nil {
		return nil, util.MapError(op, err)
	}

	logger.Log.Info("Child account created", zap.Uint("parentId", caller.UserID), zap.Uint("childId", child.ID))
	return child, nil
}

// AddGuardian links another parent, found by username, to a child the caller already
// guards. Linking twice is a no-op.
func (s *FamilyService) AddGuardian(ctx context.Context, caller util.Identity, childID uint, guardianUsername string) error {
	const op = "AddGuardian"
	if _, err := s.Guard.Guardian(ctx, op, caller, childID); err != nil {
		return err
	}
	guardian, err := s.UserRepo.FindByUsername(ctx, strings.TrimSpace(guardianUsername))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NotFound(op, "parent account not found")
	}
	if err != nil {
		return util.MapError(op, err)
	}
	if guardian.Role != model.Parent {
		return util.Validation(op, "only parent accounts can be guardians")
	}
	if err := s.FamilyRepo.Link(ctx, guardian.ID, childID); err != nil {
		return util.MapError(op, err)
	}
	return nil
}
