package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"reppyroute/internal/database"
	"reppyroute/internal/domain"
	"reppyroute/internal/repository"
)

type Service struct {
	db        *gorm.DB
	reviews   *repository.ReviewRepository
	mechanics *repository.MechanicRepository
	profiles  *repository.ProfileRepository
	requests  *repository.RequestRepository
	notifier  Notifier
}

func NewService(
	db *gorm.DB,
	reviews *repository.ReviewRepository,
	mechanics *repository.MechanicRepository,
	profiles *repository.ProfileRepository,
	requests *repository.RequestRepository,
	notifier Notifier,
) *Service {
	return &Service{db: db, reviews: reviews, mechanics: mechanics, profiles: profiles, requests: requests, notifier: notifier}
}

// Create stores a review of a finished job. Only the owner of a completed
// request may review the mechanic who did it, once per request.
func (s *Service) Create(ctx context.Context, userID int64, req CreateReviewRequest) (*domain.Review, error) {
	if userID <= 0 || req.MechanicID <= 0 || req.RepairRequestID <= 0 || req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRequest
	}

	job, err := s.requests.GetByID(ctx, req.RepairRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotAllowed
		}
		return nil, err
	}
	if job.CarOwnerID != userID || job.Status != domain.RequestCompleted ||
		job.AssignedMechanicID == nil || *job.AssignedMechanicID != req.MechanicID {
		return nil, ErrReviewNotAllowed
	}

	mechanic, err := s.profiles.GetByID(ctx, req.MechanicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotAllowed
		}
		return nil, err
	}

	rv := &domain.Review{
		MechanicID:      req.MechanicID,
		UserID:          userID,
		RepairRequestID: req.RepairRequestID,
		Rating:          req.Rating,
		Comment:         strings.TrimSpace(req.Comment),
	}
	var n *domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockMechanic(ctx, tx, mechanic); err != nil {
			return err
		}
		if err := s.reviews.WithTx(tx).Create(ctx, rv); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		if err := s.recompute(ctx, tx, mechanic.ID); err != nil {
			return err
		}
		n = &domain.Notification{
			UserID:          mechanic.ID,
			Type:            domain.NotifNewReview,
			Message:         fmt.Sprintf("You received a new %d-star review.", rv.Rating),
			RepairRequestID: &rv.RepairRequestID,
			Data:            map[string]any{"review_id": rv.ID, "rating": rv.Rating},
		}
		return s.notifier.AppendTx(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(*n)
	return rv, nil
}

func (s *Service) lockMechanic(ctx context.Context, tx *gorm.DB, p *domain.Profile) error {
	mechanics := s.mechanics.WithTx(tx)
	if _, err := mechanics.GetOrCreate(ctx, p); err != nil {
		return err
	}
	_, err := mechanics.LockForUpdate(ctx, p.ID)
	return err
}

// recompute rewrites the cached rating from the visible reviews.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, mechanicID int64) error {
	avg, count, err := s.reviews.WithTx(tx).Aggregate(ctx, mechanicID)
	if err != nil {
		return err
	}
	return s.mechanics.WithTx(tx).SetRating(ctx, mechanicID, math.Round(avg*100)/100, count)
}

func (s *Service) ListByMechanic(ctx context.Context, mechanicID int64, limit, offset int) ([]repository.ReviewView, error) {
	if mechanicID <= 0 {
		return nil, ErrInvalidRequest
	}
	return s.reviews.ListByMechanic(ctx, mechanicID, limit, offset)
}

// SetHidden is the moderation switch. Hidden reviews drop out of the
// mechanic's rating.
func (s *Service) SetHidden(ctx context.Context, reviewID int64, hidden bool) (*domain.Review, error) {
	if reviewID <= 0 {
		return nil, ErrInvalidRequest
	}
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	mechanic, err := s.profiles.GetByID(ctx, rv.MechanicID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockMechanic(ctx, tx, mechanic); err != nil {
			return err
		}
		if err := s.reviews.WithTx(tx).SetHidden(ctx, rv.ID, hidden); err != nil {
			return err
		}
		return s.recompute(ctx, tx, rv.MechanicID)
	})
	if err != nil {
		return nil, err
	}
	rv.IsHidden = hidden
	return rv, nil
}
