package auth

import "time"

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=admin section viewer"`
}

// UpdateUserRequest は指定された項目だけを変更する。
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=80"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin section viewer"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
