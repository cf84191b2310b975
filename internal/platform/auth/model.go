package auth

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSection Role = "section"
	RoleViewer  Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSection, RoleViewer:
		return true
	}
	return false
}

// Account は accounts テーブルの1行。section ロールでは ID がそのまま section_id になる。
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity は検証済みトークンから得た呼び出し元。サービス層へは明示的な引数で渡す。
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

func (a Account) Identity() Identity {
	return Identity{UserID: a.ID, Username: a.Username, Role: a.Role}
}

func (a Account) toDTO() UserResponse {
	return UserResponse{ID: a.ID, Username: a.Username, Role: a.Role, CreatedAt: a.CreatedAt}
}
