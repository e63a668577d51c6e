package models

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

// ParseRole maps a raw string to a Role, falling back to worker.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleWorker:
		return Role(s), true
	}
	return RoleWorker, false
}

// CanManageTasks reports whether the role may create, edit, toggle and
// delete tasks.
func (r Role) CanManageTasks() bool {
	return r == RoleOwner
}

// CanApprove reports whether the role may resolve completion requests.
func (r Role) CanApprove() bool {
	return r == RoleOwner
}

// CanMessage reports whether a user with this role may open a thread with a
// user of the other role. Conversations only run between the owner and
// workers; admins have no messaging privileges beyond a worker's.
func (r Role) CanMessage(other Role) bool {
	if r == RoleOwner {
		return other == RoleWorker
	}
	return other == RoleOwner
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'worker'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	AssignedTasks []Task `gorm:"foreignKey:AssigneeID" json:"-"`
	CreatedTasks  []Task `gorm:"foreignKey:CreatorID" json:"-"`
}

func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}
