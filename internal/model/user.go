package model

type UserRole string

const (
	Parent UserRole = "PARENT"
	Child  UserRole = "CHILD"
)

func (r UserRole) Valid() bool {
	return r == Parent || r == Child
}

type User struct {
	BaseModel
	Username    string   `gorm:"size:100;uniqueIndex;not null" json:"username"`
	DisplayName string   `gorm:"size:100" json:"displayName"`
	Role        UserRole `gorm:"size:16;index;not null;default:'CHILD'" json:"role"`
	Points      int      `gorm:"default:0;not null" json:"points"` // 只由积分奖励和管理员修正变更
	Avatar      string   `gorm:"size:255" json:"avatar"`
}

func (User) TableName() string {
	return "users"
}

// ParentChildLink is the guardian relation; a child may have several parents.
type ParentChildLink struct {
	BaseModel
	ParentID uint `gorm:"uniqueIndex:idx_parent_child;not null" json:"parentId"`
	ChildID  uint `gorm:"uniqueIndex:idx_parent_child;index;not null" json:"childId"`
}

func (ParentChildLink) TableName() string {
	return "parent_child_links"
}
