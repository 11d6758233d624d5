package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Profile struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	FullName     string    `gorm:"column:full_name" json:"full_name"`
	UserType     Role      `gorm:"column:user_type;index;not null" json:"user_type"`
	AvatarURL    string    `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Phone        string    `gorm:"column:phone" json:"phone,omitempty"`
	Address      string    `gorm:"column:address" json:"address,omitempty"`
	BusinessName string    `gorm:"column:business_name" json:"business_name,omitempty"`
	IsBanned     bool      `gorm:"column:is_banned;not null;default:false" json:"is_banned"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Mechanic extends a mechanic profile with business details and the
// aggregate rating maintained by the review flow.
type Mechanic struct {
	ProfileID       int64                       `gorm:"column:profile_id;primaryKey;autoIncrement:false" json:"profile_id"`
	BusinessName    string                      `gorm:"column:business_name" json:"business_name"`
	BusinessAddress string                      `gorm:"column:business_address" json:"business_address,omitempty"`
	BusinessPhone   string                      `gorm:"column:business_phone" json:"business_phone,omitempty"`
	BusinessEmail   string                      `gorm:"column:business_email" json:"business_email,omitempty"`
	ServiceRadius   int                         `gorm:"column:service_radius;not null;default:25" json:"service_radius"`
	Specialties     datatypes.JSONSlice[string] `gorm:"column:specialties" json:"specialties"`
	Certifications  datatypes.JSONSlice[string] `gorm:"column:certifications" json:"certifications"`
	AverageRating   float64                     `gorm:"column:average_rating;not null;default:0" json:"average_rating"`
	ReviewCount     int                         `gorm:"column:review_count;not null;default:0" json:"review_count"`
	CreatedAt       time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (Mechanic) TableName() string { return "mechanics" }

type Vehicle struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	OwnerID   int64     `gorm:"column:owner_id;index;not null" json:"owner_id"`
	Make      string    `gorm:"column:make;not null" json:"make"`
	Model     string    `gorm:"column:model;not null" json:"model"`
	Year      int       `gorm:"column:year;not null" json:"year"`
	VIN       string    `gorm:"column:vin" json:"vin,omitempty"`
	Mileage   int       `gorm:"column:mileage" json:"mileage,omitempty"`
	Nickname  string    `gorm:"column:nickname" json:"nickname,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Vehicle) TableName() string { return "vehicles" }

type Document struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	OwnerID   int64     `gorm:"column:owner_id;index;not null" json:"owner_id"`
	VehicleID *int64    `gorm:"column:vehicle_id" json:"vehicle_id,omitempty"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	DocType   string    `gorm:"column:doc_type" json:"doc_type"`
	FileURL   string    `gorm:"column:file_url" json:"file_url"`
	ObjectKey string    `gorm:"column:object_key" json:"-"`
	MimeType  string    `gorm:"column:mime_type" json:"mime_type"`
	Size      int64     `gorm:"column:size" json:"size"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Document) TableName() string { return "documents" }
