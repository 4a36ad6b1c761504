package repository_test

import (
	"context"
	"testing"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/repository"
	"kidquest_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAddPoints(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewUserRepository(db)

	child := testutil.SeedChild(t, db, "mia")

	total, err := repo.AddPoints(ctx, child.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	total, err = repo.AddPoints(ctx, child.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 35, total)

	_, err = repo.AddPoints(ctx, 9999, 5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTopChildrenTieBreak(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewUserRepository(db)

	parent := testutil.SeedParent(t, db, "mum")
	first := testutil.SeedChild(t, db, "first")
	second := testutil.SeedChild(t, db, "second")
	leader := testutil.SeedChild(t, db, "leader")
	testutil.SetPoints(t, db, parent, 500)
	testutil.SetPoints(t, db, first, 40)
	testutil.SetPoints(t, db, second, 40)
	testutil.SetPoints(t, db, leader, 90)

	users, err := repo.TopChildren(ctx, 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []uint{leader.ID, first.ID, second.ID}, []uint{users[0].ID, users[1].ID, users[2].ID})

	users, err = repo.RankChildren(ctx, []uint{second.ID, first.ID}, 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, first.ID, users[0].ID)
}

func TestFamilyLinks(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repository.NewFamilyRepository(db)

	mum := testutil.SeedParent(t, db, "mum")
	dad := testutil.SeedParent(t, db, "dad")
	a := testutil.SeedChild(t, db, "a", mum)
	b := testutil.SeedChild(t, db, "b", dad)

	require.NoError(t, repo.Link(ctx, dad.ID, a.ID))
	require.NoError(t, repo.Link(ctx, dad.ID, a.ID))

	var links int64
	require.NoError(t, db.Model(&model.ParentChildLink{}).Where("parent_id = ? AND child_id = ?", dad.ID, a.ID).Count(&links).Error)
	assert.EqualValues(t, 1, links)

	linked, err := repo.IsLinked(ctx, mum.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, linked)

	parents, err := repo.ParentIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{mum.ID, dad.ID}, parents)

	siblings, err := repo.SiblingIDs(ctx, parents)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, siblings)
}
