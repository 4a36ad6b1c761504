package service

import (
	"context"
	"errors"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/util"

	"gorm.io/gorm"
)

// Guard answers "may this caller see that user's data".
type Guard struct {
	UserRepo   *repository.UserRepository
	FamilyRepo *repository.FamilyRepository
}

func NewGuard(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository) *Guard {
	return &Guard{UserRepo: userRepo, FamilyRepo: familyRepo}
}

func requireCaller(op string, caller util.Identity) error {
	if caller.IsZero() {
		return util.NotAuthenticated(op)
	}
	return nil
}

func requireParent(op string, caller util.Identity) error {
	if err := requireCaller(op, caller); err != nil {
		return err
	}
	if caller.Role != model.Parent {
		return util.Unauthorized(op, "parent account required")
	}
	return nil
}

// findChild loads a CHILD user; any other user is reported as not found.
func (g *Guard) findChild(ctx context.Context, op string, childID uint) (*model.User, error) {
	child, err := g.UserRepo.FindByID(ctx, childID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && child.Role != model.Child) {
		return nil, util.NotFound(op, "child not found")
	}
	if err != nil {
		return nil, util.MapError(op, err)
	}
	return child, nil
}

// Guardian checks that caller is a PARENT linked to childID and returns the child.
// The link is verified before any child data leaves this function.
func (g *Guard) Guardian(ctx context.Context, op string, caller util.Identity, childID uint) (*model.User, error) {
	if err := requireParent(op, caller); err != nil {
		return nil, err
	}
	child, err := g.findChild(ctx, op, childID)
	if err != nil {
		return nil, err
	}
	linked, err := g.FamilyRepo.IsLinked(ctx, caller.UserID, childID)
	if err != nil {
		return nil, util.MapError(op, err)
	}
	if !linked {
		return nil, util.Unauthorized(op, "not a guardian of this child")
	}
	return child, nil
}

// Subject allows the user themself or a linked guardian.
func (g *Guard) Subject(ctx context.Context, op string, caller util.Identity, userID uint) error {
	if err := requireCaller(op, caller); err != nil {
		return err
	}
	if caller.UserID == userID {
		return nil
	}
	if caller.Role != model.Parent {
		return util.Unauthorized(op, "cannot read another user's progress")
	}
	_, err := g.Guardian(ctx, op, caller, userID)
	return err
}
