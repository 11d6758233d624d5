package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reppyroute/internal/domain"
)

// QuoteView is a quote projected with the public details of its mechanic.
type QuoteView struct {
	domain.RepairQuote
	MechanicName        string  `gorm:"column:mechanic_name" json:"mechanic_name"`
	MechanicBusiness    string  `gorm:"column:mechanic_business" json:"mechanic_business,omitempty"`
	MechanicRating      float64 `gorm:"column:mechanic_rating" json:"mechanic_rating"`
	MechanicReviewCount int     `gorm:"column:mechanic_review_count" json:"mechanic_review_count"`
}

// MechanicQuote is a quote together with the request it answers.
type MechanicQuote struct {
	domain.RepairQuote
	CarMake       string               `gorm:"column:car_make" json:"car_make"`
	CarModel      string               `gorm:"column:car_model" json:"car_model"`
	CarYear       int                  `gorm:"column:car_year" json:"car_year"`
	IssueType     string               `gorm:"column:issue_type" json:"issue_type"`
	Location      string               `gorm:"column:location" json:"location"`
	RequestStatus domain.RequestStatus `gorm:"column:request_status" json:"request_status"`
}

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) WithTx(tx *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: tx}
}

// Upsert inserts the mechanic's quote for a request or updates it in place
// while it is still pending. The unique (request, mechanic) index makes this
// a single atomic statement. It reports false when an existing quote was
// left untouched because it is no longer pending.
func (r *QuoteRepository) Upsert(ctx context.Context, q *domain.RepairQuote) (bool, error) {
	now := time.Now().UTC()
	q.Status = domain.QuotePending
	q.CreatedAt = now
	q.UpdatedAt = now

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repair_request_id"}, {Name: "mechanic_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "description", "estimated_hours", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "repair_quotes", Name: "status"}, Value: domain.QuotePending},
		}},
	}).Create(q)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QuoteRepository) GetByID(ctx context.Context, id int64) (*domain.RepairQuote, error) {
	var q domain.RepairQuote
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (r *QuoteRepository) GetForMechanic(ctx context.Context, requestID, mechanicID int64) (*domain.RepairQuote, error) {
	var q domain.RepairQuote
	err := r.db.WithContext(ctx).
		Where("repair_request_id = ? AND mechanic_id = ?", requestID, mechanicID).
		First(&q).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (r *QuoteRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("repair_quotes AS q").
		Select(`q.*, p.full_name AS mechanic_name, m.business_name AS mechanic_business,
			COALESCE(m.average_rating, 0) AS mechanic_rating, COALESCE(m.review_count, 0) AS mechanic_review_count`).
		Joins("JOIN profiles p ON p.id = q.mechanic_id").
		Joins("LEFT JOIN mechanics m ON m.profile_id = q.mechanic_id")
}

// ListViews returns the quotes of a request, optionally only one mechanic's.
func (r *QuoteRepository) ListViews(ctx context.Context, requestID int64, mechanicID *int64) ([]QuoteView, error) {
	q := r.viewQuery(ctx).Where("q.repair_request_id = ?", requestID)
	if mechanicID != nil {
		q = q.Where("q.mechanic_id = ?", *mechanicID)
	}
	out := []QuoteView{}
	err := q.Order("q.amount ASC").Order("q.id ASC").Scan(&out).Error
	return out, err
}

func (r *QuoteRepository) ListByMechanic(ctx context.Context, mechanicID int64) ([]MechanicQuote, error) {
	out := []MechanicQuote{}
	err := r.db.WithContext(ctx).Table("repair_quotes AS q").
		Select("q.*, r.car_make, r.car_model, r.car_year, r.issue_type, r.location, r.status AS request_status").
		Joins("JOIN repair_requests r ON r.id = q.repair_request_id").
		Where("q.mechanic_id = ?", mechanicID).
		Order("q.updated_at DESC").Order("q.id DESC").
		Scan(&out).Error
	return out, err
}

// SetStatus moves a quote between statuses only from the expected one.
func (r *QuoteRepository) SetStatus(ctx context.Context, id int64, from, to domain.QuoteStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RepairQuote{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RejectPending rejects every pending quote of a request except keepID and
// returns the affected mechanics.
func (r *QuoteRepository) RejectPending(ctx context.Context, requestID, keepID int64) ([]int64, error) {
	var mechanics []int64
	err := r.db.WithContext(ctx).Model(&domain.RepairQuote{}).
		Where("repair_request_id = ? AND id <> ? AND status = ?", requestID, keepID, domain.QuotePending).
		Order("id ASC").
		Pluck("mechanic_id", &mechanics).Error
	if err != nil {
		return nil, err
	}
	if len(mechanics) == 0 {
		return nil, nil
	}
	err = r.db.WithContext(ctx).Model(&domain.RepairQuote{}).
		Where("repair_request_id = ? AND id <> ? AND status = ?", requestID, keepID, domain.QuotePending).
		Updates(map[string]any{"status": domain.QuoteRejected, "updated_at": time.Now().UTC()}).Error
	return mechanics, err
}

func (r *QuoteRepository) HasQuote(ctx context.Context, requestID, mechanicID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RepairQuote{}).
		Where("repair_request_id = ? AND mechanic_id = ?", requestID, mechanicID).
		Count(&n).Error
	return n > 0, err
}

// QuotePoint is one quote amount and when it was given.
type QuotePoint struct {
	Amount    float64   `gorm:"column:amount"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// PricePoints returns the quotes on requests of an issue type posted at or
// after since, cheapest first.
func (r *QuoteRepository) PricePoints(ctx context.Context, issueType string, since time.Time) ([]QuotePoint, error) {
	out := []QuotePoint{}
	q := r.db.WithContext(ctx).Table("repair_quotes AS q").
		Select("q.amount, q.created_at").
		Joins("JOIN repair_requests r ON r.id = q.repair_request_id").
		Where("r.created_at >= ?", since)
	if issueType != "" {
		q = q.Where("r.issue_type = ?", issueType)
	}
	err := q.Order("q.amount ASC").Order("q.id ASC").Scan(&out).Error
	return out, err
}

func (r *QuoteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RepairQuote{}).Count(&n).Error
	return n, err
}
