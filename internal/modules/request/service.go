// Package request owns the repair request and quote lifecycle. Every state
// change is a compare-and-swap inside one database transaction, and the
// notifications it causes are written in that same transaction.
package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/tracing"
	"reppyroute/internal/repository"
	"reppyroute/internal/storage"
)

const diagnosticsPrefix = "diagnostics"

type Service struct {
	db        *gorm.DB
	requests  *repository.RequestRepository
	quotes    *repository.QuoteRepository
	vehicles  *repository.VehicleRepository
	profiles  *repository.ProfileRepository
	notifier  Notifier
	store     storage.Store
	maxUpload int64
	log       *slog.Logger
}

func NewService(
	db *gorm.DB,
	requests *repository.RequestRepository,
	quotes *repository.QuoteRepository,
	vehicles *repository.VehicleRepository,
	profiles *repository.ProfileRepository,
	notifier Notifier,
	store storage.Store,
	maxUpload int64,
) *Service {
	return &Service{
		db:        db,
		requests:  requests,
		quotes:    quotes,
		vehicles:  vehicles,
		profiles:  profiles,
		notifier:  notifier,
		store:     store,
		maxUpload: maxUpload,
		log:       slog.Default().With("module", "request"),
	}
}

func (s *Service) Create(ctx context.Context, ownerID int64, in CreateRequestInput, diagnostic *multipart.FileHeader) (_ *domain.RepairRequest, err error) {
	ctx, span := tracing.Start(ctx, "request.create", attribute.Int64("owner_id", ownerID))
	defer func() { tracing.End(span, err) }()

	if ownerID <= 0 {
		return nil, ErrInvalidRequest
	}

	req := &domain.RepairRequest{
		CarOwnerID:       ownerID,
		CarMake:          strings.TrimSpace(in.CarMake),
		CarModel:         strings.TrimSpace(in.CarModel),
		CarYear:          in.CarYear,
		IssueType:        strings.TrimSpace(in.IssueType),
		Description:      strings.TrimSpace(in.Description),
		Location:         strings.TrimSpace(in.Location),
		ContactPhone:     strings.TrimSpace(in.ContactPhone),
		TargetMechanicID: in.TargetMechanicID,
		Status:           domain.RequestOpen,
		Version:          1,
	}

	if in.VehicleID != nil {
		v, err := s.vehicles.GetByID(ctx, *in.VehicleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &ValidationError{Fields: map[string]string{"vehicle_id": "not_found"}}
			}
			return nil, err
		}
		if v.OwnerID != ownerID {
			return nil, ErrForbidden
		}
		req.VehicleID = &v.ID
		req.CarMake, req.CarModel, req.CarYear = v.Make, v.Model, v.Year
	}

	fields := map[string]string{}
	if req.CarMake == "" {
		fields["car_make"] = "required"
	}
	if req.CarModel == "" {
		fields["car_model"] = "required"
	}
	if maxYear := time.Now().Year() + 1; req.CarYear < 1900 || req.CarYear > maxYear {
		fields["car_year"] = "range"
	}
	if req.IssueType == "" {
		fields["issue_type"] = "required"
	}
	if req.Description == "" {
		fields["description"] = "required"
	}
	if req.Location == "" {
		fields["location"] = "required"
	}
	st := domain.ServiceAny
	if in.PreferredServiceType != "" {
		parsed, ok := domain.ParseServiceType(in.PreferredServiceType)
		if !ok {
			fields["preferred_service_type"] = "oneof"
		}
		st = parsed
	}
	req.PreferredServiceType = st
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if req.TargetMechanicID != nil {
		target, err := s.profiles.GetByID(ctx, *req.TargetMechanicID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &ValidationError{Fields: map[string]string{"target_mechanic_id": "not_found"}}
			}
			return nil, err
		}
		if target.UserType != domain.RoleMechanic || target.ID == ownerID {
			return nil, &ValidationError{Fields: map[string]string{"target_mechanic_id": "not_mechanic"}}
		}
	}

	var obj *storage.Object
	if diagnostic != nil {
		obj, err = storage.Save(ctx, s.store, diagnosticsPrefix, diagnostic, s.maxUpload)
		if err != nil {
			if errors.Is(err, storage.ErrEmptyFile) || errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrInvalidMimeType) {
				return nil, fmt.Errorf("%w: %v", ErrUpload, err)
			}
			return nil, fmt.Errorf("store diagnostic: %w", err)
		}
		req.DiagnosticURL = obj.URL
		req.DiagnosticKey = obj.Key
	}

	var pending []domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requests.WithTx(tx).Create(ctx, req); err != nil {
			return err
		}
		if req.IsDirect() {
			n := &domain.Notification{
				UserID:          *req.TargetMechanicID,
				Type:            domain.NotifJobRequest,
				Message:         fmt.Sprintf("You've received a direct repair request for a %s.", req.VehicleLabel()),
				RepairRequestID: &req.ID,
			}
			if err := s.notifier.AppendTx(ctx, tx, n); err != nil {
				return err
			}
			pending = append(pending, *n)
		}
		return nil
	})
	if err != nil {
		if obj != nil {
			if derr := s.store.Delete(context.WithoutCancel(ctx), obj.Key); derr != nil {
				s.log.Error("failed to remove orphaned diagnostic", "key", obj.Key, "error", derr)
			}
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.notifier.Publish(pending...)
	return req, nil
}

func (s *Service) ListOpen(ctx context.Context, mechanicID int64, q ListOpenQuery) ([]repository.RequestSummary, error) {
	sort, ok := repository.ParseRequestSort(q.Sort)
	if !ok {
		return nil, ErrInvalidRequest
	}
	var st domain.ServiceType
	if q.ServiceType != "" {
		if st, ok = domain.ParseServiceType(q.ServiceType); !ok {
			return nil, ErrInvalidRequest
		}
	}
	return s.requests.ListOpen(ctx, repository.OpenRequestFilter{
		ViewerID:    mechanicID,
		IssueType:   strings.TrimSpace(q.IssueType),
		Location:    strings.TrimSpace(q.Location),
		ServiceType: st,
		Sort:        sort,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
}

// Get returns the request with the quotes visible to the viewer: owners and
// admins see every quote, a mechanic only their own.
func (s *Service) Get(ctx context.Context, viewer Actor, id int64) (*RequestDetail, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var only *int64
	switch {
	case viewer.Role == domain.RoleAdmin || req.CarOwnerID == viewer.ID:
	case viewer.Role == domain.RoleMechanic:
		visible, err := s.mechanicCanSee(ctx, req, viewer.ID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, ErrForbidden
		}
		only = &viewer.ID
	default:
		return nil, ErrForbidden
	}

	return s.detail(ctx, req, only)
}

func (s *Service) mechanicCanSee(ctx context.Context, req *domain.RepairRequest, mechanicID int64) (bool, error) {
	if req.AssignedMechanicID != nil && *req.AssignedMechanicID == mechanicID {
		return true, nil
	}
	if req.TargetMechanicID != nil && *req.TargetMechanicID == mechanicID {
		return true, nil
	}
	if req.Status == domain.RequestOpen && !req.IsDirect() {
		return true, nil
	}
	return s.quotes.HasQuote(ctx, req.ID, mechanicID)
}

func (s *Service) detail(ctx context.Context, req *domain.RepairRequest, only *int64) (*RequestDetail, error) {
	quotes, err := s.quotes.ListViews(ctx, req.ID, only)
	if err != nil {
		return nil, err
	}
	out := &RequestDetail{Request: *req, Quotes: quotes}
	if req.Status == domain.RequestOpen {
		for _, q := range quotes {
			if q.Status == domain.QuotePending {
				out.Quoted = true
				break
			}
		}
	}
	return out, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID int64) ([]repository.RequestSummary, error) {
	return s.requests.ListByOwner(ctx, ownerID)
}

func (s *Service) ListMyQuotes(ctx context.Context, mechanicID int64) ([]repository.MechanicQuote, error) {
	return s.quotes.ListByMechanic(ctx, mechanicID)
}

func (s *Service) ListJobs(ctx context.Context, mechanicID int64) ([]domain.RepairRequest, error) {
	return s.requests.ListAssigned(ctx, mechanicID)
}

// SubmitQuote creates the mechanic's quote or revises it while pending.
func (s *Service) SubmitQuote(ctx context.Context, mechanicID, requestID int64, in SubmitQuoteInput) (_ *domain.RepairQuote, err error) {
	ctx, span := tracing.Start(ctx, "request.submit_quote",
		attribute.Int64("request_id", requestID), attribute.Int64("mechanic_id", mechanicID))
	defer func() { tracing.End(span, err) }()

	fields := map[string]string{}
	if in.Amount <= 0 {
		fields["amount"] = "gt"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "required"
	}
	if in.EstimatedHours < 0.5 {
		fields["estimated_hours"] = "gte"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var saved *domain.RepairQuote
	var pending []domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests, quotes := s.requests.WithTx(tx), s.quotes.WithTx(tx)

		req, err := requests.GetForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if req.CarOwnerID == mechanicID {
			return ErrForbidden
		}
		if req.TargetMechanicID != nil && *req.TargetMechanicID != mechanicID {
			return ErrForbidden
		}
		if req.Status != domain.RequestOpen {
			return ErrRequestNotOpen
		}

		existing, err := quotes.GetForMechanic(ctx, requestID, mechanicID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil && existing.Status != domain.QuotePending {
			return ErrQuoteLocked
		}

		written, err := quotes.Upsert(ctx, &domain.RepairQuote{
			RepairRequestID: requestID,
			MechanicID:      mechanicID,
			Amount:          in.Amount,
			Description:     strings.TrimSpace(in.Description),
			EstimatedHours:  in.EstimatedHours,
		})
		if err != nil {
			return err
		}
		if !written {
			return ErrQuoteLocked
		}
		if saved, err = quotes.GetForMechanic(ctx, requestID, mechanicID); err != nil {
			return err
		}

		msg := fmt.Sprintf("You've received a new quote for your %s repair request.", req.VehicleLabel())
		if existing != nil {
			msg = fmt.Sprintf("A mechanic has updated their quote for your %s repair request.", req.VehicleLabel())
		}
		n := &domain.Notification{
			UserID:          req.CarOwnerID,
			Type:            domain.NotifQuote,
			Message:         msg,
			RepairRequestID: &req.ID,
			Data:            map[string]any{"quote_id": saved.ID, "mechanic_id": mechanicID, "amount": saved.Amount},
		}
		if err := s.notifier.AppendTx(ctx, tx, n); err != nil {
			return err
		}
		pending = append(pending, *n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(pending...)
	return saved, nil
}

// Accept awards the request to one quote. The request moves to in_progress,
// the quote to accepted and every other pending quote to rejected, all in
// one transaction. Only the accepted mechanic is notified.
func (s *Service) Accept(ctx context.Context, ownerID, requestID, quoteID int64) (_ *RequestDetail, err error) {
	ctx, span := tracing.Start(ctx, "request.accept_quote",
		attribute.Int64("request_id", requestID), attribute.Int64("quote_id", quoteID))
	defer func() { tracing.End(span, err) }()

	var pending []domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests, quotes := s.requests.WithTx(tx), s.quotes.WithTx(tx)

		req, quote, err := s.lockOwned(ctx, requests, quotes, ownerID, requestID, quoteID)
		if err != nil {
			return err
		}
		if req.Status != domain.RequestOpen || quote.Status != domain.QuotePending {
			return ErrInvalidTransition
		}

		ok, err := requests.Transition(ctx, req.ID, domain.RequestOpen, domain.RequestInProgress, map[string]any{
			"accepted_quote_id":    quote.ID,
			"assigned_mechanic_id": quote.MechanicID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		if ok, err = quotes.SetStatus(ctx, quote.ID, domain.QuotePending, domain.QuoteAccepted); err != nil {
			return err
		} else if !ok {
			return ErrInvalidTransition
		}
		if _, err := quotes.RejectPending(ctx, req.ID, quote.ID); err != nil {
			return err
		}

		n := &domain.Notification{
			UserID:          quote.MechanicID,
			Type:            domain.NotifQuoteAccepted,
			Message:         fmt.Sprintf("Your quote for %s repair has been accepted!", req.VehicleLabel()),
			RepairRequestID: &req.ID,
			Data:            map[string]any{"quote_id": quote.ID},
		}
		if err := s.notifier.AppendTx(ctx, tx, n); err != nil {
			return err
		}
		pending = append(pending, *n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(pending...)

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, req, nil)
}

// Reject declines a single pending quote.
func (s *Service) Reject(ctx context.Context, ownerID, requestID, quoteID int64) (*domain.RepairQuote, error) {
	var pending []domain.Notification
	var out *domain.RepairQuote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests, quotes := s.requests.WithTx(tx), s.quotes.WithTx(tx)

		req, quote, err := s.lockOwned(ctx, requests, quotes, ownerID, requestID, quoteID)
		if err != nil {
			return err
		}
		ok, err := quotes.SetStatus(ctx, quote.ID, domain.QuotePending, domain.QuoteRejected)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		quote.Status = domain.QuoteRejected
		out = quote

		n := &domain.Notification{
			UserID:          quote.MechanicID,
			Type:            domain.NotifQuoteRejected,
			Message:         fmt.Sprintf("Your quote for %s repair was not selected.", req.VehicleLabel()),
			RepairRequestID: &req.ID,
			Data:            map[string]any{"quote_id": quote.ID},
		}
		if err := s.notifier.AppendTx(ctx, tx, n); err != nil {
			return err
		}
		pending = append(pending, *n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(pending...)
	return out, nil
}

func (s *Service) lockOwned(ctx context.Context, requests *repository.RequestRepository, quotes *repository.QuoteRepository, ownerID, requestID, quoteID int64) (*domain.RepairRequest, *domain.RepairQuote, error) {
	req, err := requests.GetForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if req.CarOwnerID != ownerID {
		return nil, nil, ErrForbidden
	}
	quote, err := quotes.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if quote.RepairRequestID != req.ID {
		return nil, nil, ErrNotFound
	}
	return req, quote, nil
}

// Complete closes an in-progress job. Either the owner or the assigned
// mechanic may do it; the other party is notified.
func (s *Service) Complete(ctx context.Context, actor Actor, requestID int64) (*domain.RepairRequest, error) {
	return s.transition(ctx, requestID, domain.RequestInProgress, domain.RequestCompleted,
		func(req *domain.RepairRequest) ([]int64, string, error) {
			switch {
			case req.CarOwnerID == actor.ID:
				if req.AssignedMechanicID == nil {
					return nil, "", nil
				}
				return []int64{*req.AssignedMechanicID}, fmt.Sprintf("The %s repair job has been marked completed.", req.VehicleLabel()), nil
			case req.AssignedMechanicID != nil && *req.AssignedMechanicID == actor.ID:
				return []int64{req.CarOwnerID}, fmt.Sprintf("Your %s repair has been marked completed.", req.VehicleLabel()), nil
			}
			return nil, "", ErrForbidden
		},
		map[string]any{"completed_at": time.Now().UTC()},
	)
}

// Cancel withdraws an open request. Pending quotes are rejected and each
// mechanic involved hears about it once.
func (s *Service) Cancel(ctx context.Context, ownerID, requestID int64) (*domain.RepairRequest, error) {
	return s.transition(ctx, requestID, domain.RequestOpen, domain.RequestCancelled,
		func(req *domain.RepairRequest) ([]int64, string, error) {
			if req.CarOwnerID != ownerID {
				return nil, "", ErrForbidden
			}
			return nil, fmt.Sprintf("The %s repair request you quoted on was cancelled by the owner.", req.VehicleLabel()), nil
		}, nil)
}

// Decline lets the target mechanic turn down a direct request.
func (s *Service) Decline(ctx context.Context, mechanicID, requestID int64) (*domain.RepairRequest, error) {
	return s.transition(ctx, requestID, domain.RequestOpen, domain.RequestDeclined,
		func(req *domain.RepairRequest) ([]int64, string, error) {
			if req.TargetMechanicID == nil || *req.TargetMechanicID != mechanicID {
				return nil, "", ErrForbidden
			}
			return []int64{req.CarOwnerID}, fmt.Sprintf("Your direct request for %s repair was declined.", req.VehicleLabel()), nil
		}, nil)
}

// authorizeFunc checks the actor against the locked request and returns who
// to notify and with what text. A nil recipient list on a transition out of
// open means "every mechanic whose pending quote was rejected".
type authorizeFunc func(req *domain.RepairRequest) ([]int64, string, error)

func (s *Service) transition(ctx context.Context, requestID int64, from, to domain.RequestStatus, authorize authorizeFunc, set map[string]any) (_ *domain.RepairRequest, err error) {
	ctx, span := tracing.Start(ctx, "request.transition",
		attribute.Int64("request_id", requestID), attribute.String("to", string(to)))
	defer func() { tracing.End(span, err) }()

	var pending []domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests, quotes := s.requests.WithTx(tx), s.quotes.WithTx(tx)

		req, err := requests.GetForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		recipients, msg, err := authorize(req)
		if err != nil {
			return err
		}
		if req.Status != from || !from.CanTransitionTo(to) {
			return ErrInvalidTransition
		}
		ok, err := requests.Transition(ctx, req.ID, from, to, set)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}

		if from == domain.RequestOpen {
			rejected, err := quotes.RejectPending(ctx, req.ID, 0)
			if err != nil {
				return err
			}
			if recipients == nil {
				recipients = rejected
				if req.TargetMechanicID != nil {
					recipients = append(recipients, *req.TargetMechanicID)
				}
			}
		}

		seen := map[int64]bool{}
		for _, uid := range recipients {
			if seen[uid] || msg == "" {
				continue
			}
			seen[uid] = true
			n := &domain.Notification{
				UserID:          uid,
				Type:            domain.NotifStatusChange,
				Message:         msg,
				RepairRequestID: &req.ID,
				Data:            map[string]any{"status": string(to)},
			}
			if err := s.notifier.AppendTx(ctx, tx, n); err != nil {
				return err
			}
			pending = append(pending, *n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(pending...)
	return s.requests.GetByID(ctx, requestID)
}
