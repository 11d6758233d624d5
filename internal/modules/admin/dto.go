package admin

import "reppyroute/internal/domain"

type Stats struct {
	Profiles       map[domain.Role]int64          `json:"profiles"`
	TotalProfiles  int64                          `json:"total_profiles"`
	Requests       map[domain.RequestStatus]int64 `json:"requests"`
	TotalRequests  int64                          `json:"total_requests"`
	Quotes         int64                          `json:"quotes"`
	Messages       int64                          `json:"messages"`
	Reviews        int64                          `json:"reviews"`
	Leads          int64                          `json:"leads"`
}

type UserListQuery struct {
	UserType string `form:"user_type"`
	Search   string `form:"q"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type UserList struct {
	Users []domain.Profile `json:"users"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	UserType string `json:"user_type" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type ChangeRoleRequest struct {
	UserType string `json:"user_type" validate:"required"`
}
