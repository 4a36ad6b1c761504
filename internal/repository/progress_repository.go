package repository

import (
	"context"
	"errors"
	"time"

	"kidquest_backend/internal/model"
	"kidquest_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// WithTx binds the repository to an open transaction.
func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Find(ctx context.Context, userID uint, contentID string) (*model.UserLearningProgress, error) {
	var p model.UserLearningProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// upsert applies mutate to the existing ledger row, or to a fresh one on first touch.
// A unique violation on that first insert means a concurrent first touch won the race;
// the write is then retried exactly once as an update of the winner's row.
func (r *ProgressRepository) upsert(ctx context.Context, userID uint, contentID string, now time.Time, mutate func(p *model.UserLearningProgress)) (*model.UserLearningProgress, error) {
	db := r.DB.WithContext(ctx)

	row, err := r.Find(ctx, userID, contentID)
	switch {
	case err == nil:
		mutate(row)
		return row, db.Omit(clause.Associations).Save(row).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	row = &model.UserLearningProgress{
		UserID:       userID,
		ContentID:    contentID,
		Status:       model.StatusInProgress,
		StartedAt:    now,
		LastAccessed: now,
	}
	mutate(row)

	// 嵌套事务即 savepoint，插入冲突不会中断外层事务
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(row).Error
	})
	if err == nil {
		return row, nil
	}
	if !util.IsDuplicateKey(err) {
		return nil, err
	}

	row, err = r.Find(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	mutate(row)
	return row, db.Omit(clause.Associations).Save(row).Error
}

// UpsertBlock adds blockID to the row's completed blocks. The status moves to
// inprogress unless the row is already terminal.
func (r *ProgressRepository) UpsertBlock(ctx context.Context, userID uint, contentID, blockID string, now time.Time) (*model.UserLearningProgress, error) {
	return r.upsert(ctx, userID, contentID, now, func(p *model.UserLearningProgress) {
		p.CompletedBlocks.Add(blockID)
		if !p.Status.Terminal() {
			p.Status = model.StatusInProgress
		}
		p.LastAccessed = now
	})
}

// MarkTerminal writes a terminal outcome. Rows that are already terminal are rewritten.
func (r *ProgressRepository) MarkTerminal(ctx context.Context, userID uint, contentID string, outcome model.ProgressStatus, score *int, now time.Time) (*model.UserLearningProgress, error) {
	return r.upsert(ctx, userID, contentID, now, func(p *model.UserLearningProgress) {
		p.Status = outcome
		if score != nil {
			s := *score
			p.Score = &s
		}
		completedAt := now
		p.CompletedAt = &completedAt
		p.LastAccessed = now
	})
}

// ListForUser returns a user's rows, newest access first. An empty contentIDs means all.
func (r *ProgressRepository) ListForUser(ctx context.Context, userID uint, contentIDs []string) ([]model.UserLearningProgress, error) {
	var rows []model.UserLearningProgress
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if len(contentIDs) > 0 {
		q = q.Where("content_id IN ?", contentIDs)
	}
	err := q.Order("last_accessed DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// StatusMap maps content id to ledger status for the given content.
func (r *ProgressRepository) StatusMap(ctx context.Context, userID uint, contentIDs []string) (map[string]model.ProgressStatus, error) {
	statuses := make(map[string]model.ProgressStatus)
	if len(contentIDs) == 0 {
		return statuses, nil
	}
	rows, err := r.ListForUser(ctx, userID, contentIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		statuses[p.ContentID] = p.Status
	}
	return statuses, nil
}

// StatusCounts is the number of ledger rows per content type and status.
type StatusCounts map[model.ContentType]map[model.ProgressStatus]int

func (c StatusCounts) Get(t model.ContentType, s model.ProgressStatus) int {
	return c[t][s]
}

func (r *ProgressRepository) CountByTypeAndStatus(ctx context.Context, userID uint) (StatusCounts, error) {
	var rows []struct {
		ContentType model.ContentType
		Status      model.ProgressStatus
		Total       int
	}
	err := r.DB.WithContext(ctx).
		Table("user_learning_progresses AS p").
		Select("c.content_type AS content_type, p.status AS status, COUNT(*) AS total").
		Joins("JOIN learning_contents AS c ON c.id = p.content_id AND c.deleted_at IS NULL").
		Where("p.user_id = ? AND p.deleted_at IS NULL", userID).
		Group("c.content_type, p.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(StatusCounts)
	for _, row := range rows {
		if counts[row.ContentType] == nil {
			counts[row.ContentType] = make(map[model.ProgressStatus]int)
		}
		counts[row.ContentType][row.Status] = row.Total
	}
	return counts, nil
}

// LedgerEntry is a ledger row joined with the content fields reports need.
type LedgerEntry struct {
	ContentID    string
	Title        string
	ContentType  model.ContentType
	Subject      string
	Status       model.ProgressStatus
	Score        *int
	CompletedAt  *time.Time
	LastAccessed time.Time
}

// ListEntries returns joined rows newest access first; limit <= 0 means no limit.
func (r *ProgressRepository) ListEntries(ctx context.Context, userID uint, limit int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	q := r.DB.WithContext(ctx).
		Table("user_learning_progresses AS p").
		Select("p.content_id AS content_id, c.title AS title, c.content_type AS content_type, c.subject AS subject, " +
			"p.status AS status, p.score AS score, p.completed_at AS completed_at, p.last_accessed AS last_accessed").
		Joins("JOIN learning_contents AS c ON c.id = p.content_id AND c.deleted_at IS NULL").
		Where("p.user_id = ? AND p.deleted_at IS NULL", userID).
		Order("p.last_accessed DESC").
		Order("p.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&entries).Error
	return entries, err
}

// LastAccessedTimes returns the lastAccessed stamp of every row of the user.
func (r *ProgressRepository) LastAccessedTimes(ctx context.Context, userID uint) ([]time.Time, error) {
	var times []time.Time
	err := r.DB.WithContext(ctx).
		Model(&model.UserLearningProgress{}).
		Where("user_id = ?", userID).
		Pluck("last_accessed", &times).Error
	return times, err
}

// CountDone counts the user's completed or passed rows among contentIDs.
func (r *ProgressRepository) CountDone(ctx context.Context, userID uint, contentIDs []string) (int, error) {
	if len(contentIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&model.UserLearningProgress{}).
		Where("user_id = ? AND content_id IN ? AND status IN ?", userID, contentIDs,
			[]model.ProgressStatus{model.StatusCompleted, model.StatusPassed}).
		Count(&n).Error
	return int(n), err
}
