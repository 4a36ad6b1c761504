package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ProgressStatus string

const (
	StatusInProgress ProgressStatus = "inprogress"
	StatusCompleted  ProgressStatus = "completed"
	StatusPassed     ProgressStatus = "passed"
	StatusFailed     ProgressStatus = "failed"
)

// Terminal reports whether no further automatic transition is implied.
func (s ProgressStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPassed || s == StatusFailed
}

// Done reports whether the item counts as finished on a roadmap.
func (s ProgressStatus) Done() bool {
	return s == StatusCompleted || s == StatusPassed
}

// BlockSet is an insertion-ordered set of block ids, persisted as a JSON array.
type BlockSet struct {
	ids []string
}

func NewBlockSet(ids ...string) BlockSet {
	var s BlockSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id if absent and reports whether the set changed.
func (s *BlockSet) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

func (s BlockSet) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s BlockSet) Len() int { return len(s.ids) }

// Values returns a copy in insertion order.
func (s BlockSet) Values() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s BlockSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *BlockSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewBlockSet(ids...)
	return nil
}

func (s BlockSet) Value() (driver.Value, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *BlockSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = BlockSet{}
		return nil
	case []byte:
		if len(v) == 0 {
			*s = BlockSet{}
			return nil
		}
		return s.UnmarshalJSON(v)
	case string:
		if v == "" {
			*s = BlockSet{}
			return nil
		}
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("BlockSet: unsupported scan type %T", src)
	}
}

func (BlockSet) GormDataType() string {
	return "text"
}

// UserLearningProgress is the ledger row, unique per (user, content).
type UserLearningProgress struct {
	BaseModel
	UserID          uint            `gorm:"uniqueIndex:idx_user_content;not null" json:"userId"`
	ContentID       string          `gorm:"type:varchar(36);uniqueIndex:idx_user_content;index;not null" json:"contentId"`
	Status          ProgressStatus  `gorm:"size:20;index;not null" json:"status"`
	Score           *int            `json:"score"`
	CompletedBlocks BlockSet        `json:"completedBlocks"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt"`
	LastAccessed    time.Time       `gorm:"index" json:"lastAccessed"`
	Content         LearningContent `gorm:"foreignKey:ContentID" json:"-"`
}

func (UserLearningProgress) TableName() string {
	return "user_learning_progresses"
}

// RoadmapProgress is the per-user course position record.
type RoadmapProgress struct {
	BaseModel
	UserID           uint       `gorm:"uniqueIndex:idx_user_course;not null" json:"userId"`
	CourseID         string     `gorm:"type:varchar(36);uniqueIndex:idx_user_course;not null" json:"courseId"`
	CompletedItems   int        `gorm:"default:0" json:"completedItems"`
	TotalItems       int        `gorm:"default:0" json:"totalItems"`
	CurrentContentID *string    `gorm:"type:varchar(36)" json:"currentContentId"`
	CompletedAt      *time.Time `json:"completedAt"`
}

func (RoadmapProgress) TableName() string {
	return "roadmap_progresses"
}
