// Package garage keeps a car owner's vehicles and their paperwork.
package garage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/repository"
	"reppyroute/internal/storage"
)

const documentPrefix = "documents"

type Service struct {
	db        *gorm.DB
	vehicles  *repository.VehicleRepository
	documents *repository.DocumentRepository
	store     storage.Store
	maxUpload int64
}

func NewService(db *gorm.DB, vehicles *repository.VehicleRepository, documents *repository.DocumentRepository, store storage.Store, maxUpload int64) *Service {
	return &Service{db: db, vehicles: vehicles, documents: documents, store: store, maxUpload: maxUpload}
}

// =========================
// VEHICLES
// =========================

func (s *Service) CreateVehicle(ctx context.Context, ownerID int64, in VehicleInput) (*domain.Vehicle, error) {
	v := &domain.Vehicle{OwnerID: ownerID}
	if err := apply(v, in); err != nil {
		return nil, err
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ListVehicles(ctx context.Context, ownerID int64) ([]domain.Vehicle, error) {
	return s.vehicles.ListByOwner(ctx, ownerID)
}

func (s *Service) UpdateVehicle(ctx context.Context, ownerID, id int64, in VehicleInput) (*domain.Vehicle, error) {
	v, err := s.ownVehicle(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(v, in); err != nil {
		return nil, err
	}
	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVehicle removes the vehicle. Its documents stay with the owner.
func (s *Service) DeleteVehicle(ctx context.Context, ownerID, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.documents.WithTx(tx).DetachVehicle(ctx, id); err != nil {
			return err
		}
		err := s.vehicles.WithTx(tx).Delete(ctx, id, ownerID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVehicleNotFound
		}
		return err
	})
}

func (s *Service) ownVehicle(ctx context.Context, ownerID, id int64) (*domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	if v.OwnerID != ownerID {
		return nil, ErrVehicleNotFound
	}
	return v, nil
}

func apply(v *domain.Vehicle, in VehicleInput) error {
	v.Make = strings.TrimSpace(in.Make)
	v.Model = strings.TrimSpace(in.Model)
	if v.Make == "" || v.Model == "" {
		return ErrInvalidRequest
	}
	v.Year = in.Year
	v.VIN = strings.ToUpper(strings.TrimSpace(in.VIN))
	v.Mileage = in.Mileage
	v.Nickname = strings.TrimSpace(in.Nickname)
	return nil
}

// =========================
// DOCUMENTS
// =========================

// UploadDocument stores the file, then records it. A failed insert removes
// the stored object again.
func (s *Service) UploadDocument(ctx context.Context, ownerID int64, in DocumentInput, fh *multipart.FileHeader) (*domain.Document, error) {
	if fh == nil {
		return nil, ErrInvalidRequest
	}
	if in.VehicleID != nil {
		if _, err := s.ownVehicle(ctx, ownerID, *in.VehicleID); err != nil {
			return nil, err
		}
	}

	obj, err := storage.Save(ctx, s.store, documentPrefix, fh, s.maxUpload)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) || errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrInvalidMimeType) {
			return nil, fmt.Errorf("%w: %v", ErrUpload, err)
		}
		return nil, err
	}

	docType := in.DocType
	if docType == "" {
		docType = "other"
	}
	d := &domain.Document{
		OwnerID:   ownerID,
		VehicleID: in.VehicleID,
		Title:     strings.TrimSpace(in.Title),
		DocType:   docType,
		FileURL:   obj.URL,
		ObjectKey: obj.Key,
		MimeType:  obj.MimeType,
		Size:      obj.Size,
	}
	if err := s.documents.Create(ctx, d); err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			slog.Error("document_object_orphaned", "key", obj.Key, "error", delErr)
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDocuments(ctx context.Context, ownerID int64, vehicleID *int64) ([]domain.Document, error) {
	return s.documents.ListByOwner(ctx, ownerID, vehicleID)
}

// DeleteDocument drops the row first; a leftover object is only logged.
func (s *Service) DeleteDocument(ctx context.Context, ownerID, id int64) error {
	d, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if d.OwnerID != ownerID {
		return ErrNotFound
	}
	if err := s.documents.Delete(ctx, d.ID); err != nil {
		return err
	}
	if d.ObjectKey != "" {
		if err := s.store.Delete(ctx, d.ObjectKey); err != nil {
			slog.Warn("document_object_delete_failed", "key", d.ObjectKey, "error", err)
		}
	}
	return nil
}
