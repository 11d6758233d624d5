package profile

import "reppyroute/internal/domain"

type NavigationResponse struct {
	Role         domain.Role         `json:"role"`
	Home         string              `json:"home"`
	Capabilities []domain.Capability `json:"capabilities"`
	Links        []domain.NavLink    `json:"links"`
}

type MeResponse struct {
	Profile    *domain.Profile    `json:"profile"`
	Navigation NavigationResponse `json:"navigation"`
	Mechanic   *domain.Mechanic   `json:"mechanic,omitempty"`
}

type UpdateMeRequest struct {
	FullName     *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Address      *string `json:"address" validate:"omitempty,max=255"`
	AvatarURL    *string `json:"avatar_url" validate:"omitempty,max=512"`
	BusinessName *string `json:"business_name" validate:"omitempty,max=120"`
}

type UpdateMechanicRequest struct {
	BusinessName    *string   `json:"business_name" validate:"omitempty,min=1,max=120"`
	BusinessAddress *string   `json:"business_address" validate:"omitempty,max=255"`
	BusinessPhone   *string   `json:"business_phone" validate:"omitempty,max=32"`
	BusinessEmail   *string   `json:"business_email" validate:"omitempty,email"`
	ServiceRadius   *int      `json:"service_radius" validate:"omitempty,gte=1,lte=500"`
	Specialties     *[]string `json:"specialties" validate:"omitempty,max=50,dive,min=1,max=60"`
	Certifications  *[]string `json:"certifications" validate:"omitempty,max=50,dive,min=1,max=120"`
}

const (
	defaultDirectoryLimit = 20
	maxDirectoryLimit     = 100
)

type SearchMechanicsQuery struct {
	Q         string  `form:"q"`
	Specialty string  `form:"specialty"`
	MinRating float64 `form:"min_rating"`
	Limit     int     `form:"limit"`
	Offset    int     `form:"offset"`
}

// MechanicPublic is what anyone may see about a mechanic.
type MechanicPublic struct {
	ID        int64            `json:"id"`
	FullName  string           `json:"full_name"`
	AvatarURL string           `json:"avatar_url,omitempty"`
	Mechanic  *domain.Mechanic `json:"mechanic"`
}
