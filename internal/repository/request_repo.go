package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reppyroute/internal/domain"
)

type RequestSort string

const (
	SortNewest       RequestSort = "newest"
	SortOldest       RequestSort = "oldest"
	SortFewestQuotes RequestSort = "fewestQuotes"
)

func ParseRequestSort(s string) (RequestSort, bool) {
	switch RequestSort(s) {
	case "", SortNewest:
		return SortNewest, true
	case SortOldest:
		return SortOldest, true
	case SortFewestQuotes, "fewest_quotes":
		return SortFewestQuotes, true
	}
	return "", false
}

type OpenRequestFilter struct {
	ViewerID    int64
	IssueType   string
	Location    string
	ServiceType domain.ServiceType
	Sort        RequestSort
	Limit       int
	Offset      int
}

// RequestSummary is a request row plus the number of quotes it has.
type RequestSummary struct {
	domain.RepairRequest
	QuoteCount int64 `gorm:"column:quote_count" json:"quote_count"`
}

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) WithTx(tx *gorm.DB) *RequestRepository {
	return &RequestRepository{db: tx}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.RepairRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*domain.RepairRequest, error) {
	var req domain.RepairRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *RequestRepository) GetForUpdate(ctx context.Context, id int64) (*domain.RepairRequest, error) {
	var req domain.RepairRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

const quoteCountColumn = "(SELECT COUNT(*) FROM repair_quotes q WHERE q.repair_request_id = r.id) AS quote_count"

// ListOpen filters, counts and orders open requests in a single query.
// Direct requests are only visible to the mechanic they target.
func (r *RequestRepository) ListOpen(ctx context.Context, f OpenRequestFilter) ([]RequestSummary, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 50, 200)

	q := r.db.WithContext(ctx).Table("repair_requests AS r").
		Select("r.*, "+quoteCountColumn).
		Where("r.status = ?", domain.RequestOpen).
		Where("(r.target_mechanic_id IS NULL OR r.target_mechanic_id = ?)", f.ViewerID)

	if f.IssueType != "" {
		q = q.Where("r.issue_type = ?", f.IssueType)
	}
	if f.Location != "" {
		q = q.Where("LOWER(r.location) LIKE ? ESCAPE '\\'", containsPattern(f.Location))
	}
	if f.ServiceType != "" && f.ServiceType != domain.ServiceAny {
		q = q.Where("r.preferred_service_type IN ?", []domain.ServiceType{domain.ServiceAny, f.ServiceType})
	}

	switch f.Sort {
	case SortOldest:
		q = q.Order("r.created_at ASC").Order("r.id ASC")
	case SortFewestQuotes:
		q = q.Order("quote_count ASC").Order("r.created_at DESC").Order("r.id DESC")
	default:
		q = q.Order("r.created_at DESC").Order("r.id DESC")
	}

	out := []RequestSummary{}
	err := q.Limit(limit).Offset(offset).Scan(&out).Error
	return out, err
}

func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID int64) ([]RequestSummary, error) {
	out := []RequestSummary{}
	err := r.db.WithContext(ctx).Table("repair_requests AS r").
		Select("r.*, "+quoteCountColumn).
		Where("r.car_owner_id = ?", ownerID).
		Order("r.created_at DESC").Order("r.id DESC").
		Scan(&out).Error
	return out, err
}

// ListAssigned returns requests whose accepted quote belongs to the mechanic.
func (r *RequestRepository) ListAssigned(ctx context.Context, mechanicID int64) ([]domain.RepairRequest, error) {
	var out []domain.RepairRequest
	err := r.db.WithContext(ctx).
		Where("assigned_mechanic_id = ?", mechanicID).
		Order("updated_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Transition moves a request from one status to another only if it is still
// in the expected status. It reports whether the row changed.
func (r *RequestRepository) Transition(ctx context.Context, id int64, from, to domain.RequestStatus, set map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	for k, v := range set {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&domain.RepairRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	var rows []struct {
		Status domain.RequestStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&domain.RepairRequest{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.RequestStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
