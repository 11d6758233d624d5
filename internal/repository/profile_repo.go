package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reppyroute/internal/domain"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetManyByIDs returns profiles keyed by id.
func (r *ProfileRepository) GetManyByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error) {
	out := make(map[int64]*domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// UpdateFields applies a partial update and returns the fresh row.
func (r *ProfileRepository) UpdateFields(ctx context.Context, id int64, fields map[string]any) (*domain.Profile, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

type ProfileFilter struct {
	UserType domain.Role
	Search   string
	Limit    int
	Offset   int
}

func (r *ProfileRepository) List(ctx context.Context, f ProfileFilter) ([]domain.Profile, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 20, 100)

	q := r.db.WithContext(ctx).Model(&domain.Profile{})
	if f.UserType != "" {
		q = q.Where("user_type = ?", f.UserType)
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where("(LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(full_name) LIKE ? ESCAPE '\\')", p, p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.Profile
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type MechanicRepository struct {
	db *gorm.DB
}

func NewMechanicRepository(db *gorm.DB) *MechanicRepository {
	return &MechanicRepository{db: db}
}

func (r *MechanicRepository) WithTx(tx *gorm.DB) *MechanicRepository {
	return &MechanicRepository{db: tx}
}

func (r *MechanicRepository) Get(ctx context.Context, profileID int64) (*domain.Mechanic, error) {
	var m domain.Mechanic
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// GetOrCreate returns the mechanic row, inserting a default one first when
// none exists. Concurrent first visits converge on the same row.
func (r *MechanicRepository) GetOrCreate(ctx context.Context, p *domain.Profile) (*domain.Mechanic, error) {
	m := domain.Mechanic{
		ProfileID:      p.ID,
		BusinessName:   p.BusinessName,
		BusinessPhone:  p.Phone,
		BusinessEmail:  p.Email,
		ServiceRadius:  25,
		Specialties:    []string{},
		Certifications: []string{},
	}
	if m.BusinessName == "" {
		m.BusinessName = p.FullName
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "profile_id"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, p.ID)
}

// mechanicDetailColumns are the columns owned by the mechanic. The rating
// columns belong to the review flow and are only written by SetRating.
var mechanicDetailColumns = []string{
	"business_name", "business_address", "business_phone", "business_email",
	"service_radius", "specialties", "certifications", "updated_at",
}

func (r *MechanicRepository) UpdateDetails(ctx context.Context, m *domain.Mechanic) error {
	m.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Mechanic{}).
		Where("profile_id = ?", m.ProfileID).
		Select(mechanicDetailColumns).
		Updates(m).Error
}

// MechanicFilter narrows the public mechanic directory.
type MechanicFilter struct {
	Query     string
	Specialty string
	MinRating float64
	Limit     int
	Offset    int
}

// MechanicListing is a directory entry: the mechanic row plus the owning
// profile's display fields.
type MechanicListing struct {
	domain.Mechanic
	FullName  string `gorm:"column:full_name" json:"full_name"`
	AvatarURL string `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
}

// Search lists mechanics that are not banned, best rated first.
func (r *MechanicRepository) Search(ctx context.Context, f MechanicFilter) ([]MechanicListing, error) {
	q := r.db.WithContext(ctx).Table("mechanics").
		Select("mechanics.*, profiles.full_name, profiles.avatar_url").
		Joins("JOIN profiles ON profiles.id = mechanics.profile_id").
		Where("profiles.user_type = ? AND profiles.is_banned = ?", domain.RoleMechanic, false)

	if strings.TrimSpace(f.Query) != "" {
		q = q.Where("LOWER(mechanics.business_name) LIKE ? ESCAPE '\\'", containsPattern(f.Query))
	}
	if s := strings.TrimSpace(f.Specialty); s != "" {
		q = q.Where(datatypes.JSONArrayQuery("specialties").Contains(s))
	}
	if f.MinRating > 0 {
		q = q.Where("mechanics.average_rating >= ?", f.MinRating)
	}

	rows := []MechanicListing{}
	err := q.Order("mechanics.average_rating DESC, mechanics.review_count DESC, mechanics.profile_id ASC").
		Limit(f.Limit).Offset(f.Offset).
		Scan(&rows).Error
	return rows, err
}

// LockForUpdate takes a row lock on the mechanic inside a transaction.
func (r *MechanicRepository) LockForUpdate(ctx context.Context, profileID int64) (*domain.Mechanic, error) {
	var m domain.Mechanic
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ?", profileID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *MechanicRepository) SetRating(ctx context.Context, profileID int64, avg float64, count int) error {
	return r.db.WithContext(ctx).Model(&domain.Mechanic{}).
		Where("profile_id = ?", profileID).
		Updates(map[string]any{"average_rating": avg, "review_count": count, "updated_at": time.Now().UTC()}).Error
}

func (r *ProfileRepository) CountByType(ctx context.Context) (map[domain.Role]int64, error) {
	var rows []struct {
		UserType domain.Role
		N        int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Profile{}).
		Select("user_type, COUNT(*) AS n").Group("user_type").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Role]int64, len(rows))
	for _, row := range rows {
		out[row.UserType] = row.N
	}
	return out, nil
}
