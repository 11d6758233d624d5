package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
)

// ReviewView is a review with the reviewer's display name.
type ReviewView struct {
	domain.Review
	ReviewerName string `gorm:"column:reviewer_name" json:"reviewer_name"`
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var rv domain.Review
	if err := r.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rv, nil
}

func (r *ReviewRepository) ListByMechanic(ctx context.Context, mechanicID int64, limit, offset int) ([]ReviewView, error) {
	limit, offset = clampPage(limit, offset, 10, 100)
	out := []ReviewView{}
	err := r.db.WithContext(ctx).Table("reviews AS rv").
		Select("rv.*, p.full_name AS reviewer_name").
		Joins("JOIN profiles p ON p.id = rv.user_id").
		Where("rv.mechanic_id = ? AND rv.is_hidden = ?", mechanicID, false).
		Order("rv.created_at DESC").Order("rv.id DESC").
		Limit(limit).Offset(offset).
		Scan(&out).Error
	return out, err
}

// Aggregate returns the mean rating and count over visible reviews.
func (r *ReviewRepository) Aggregate(ctx context.Context, mechanicID int64) (float64, int, error) {
	var row struct {
		Avg float64
		N   int
	}
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS n").
		Where("mechanic_id = ? AND is_hidden = ?", mechanicID, false).
		Scan(&row).Error
	return row.Avg, row.N, err
}

func (r *ReviewRepository) SetHidden(ctx context.Context, id int64, hidden bool) error {
	res := r.db.WithContext(ctx).Model(&domain.Review{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_hidden": hidden, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Review{}).Count(&n).Error
	return n, err
}
