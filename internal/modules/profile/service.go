package profile

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"

	"reppyroute/internal/domain"
	"reppyroute/internal/repository"
	"reppyroute/internal/storage"
)

const avatarPrefix = "avatars"

type Service struct {
	profiles  *repository.ProfileRepository
	mechanics *repository.MechanicRepository
	store     storage.Store
	maxUpload int64
}

func NewService(profiles *repository.ProfileRepository, mechanics *repository.MechanicRepository, store storage.Store, maxUpload int64) *Service {
	return &Service{profiles: profiles, mechanics: mechanics, store: store, maxUpload: maxUpload}
}

// Navigation describes what the role may reach.
func Navigation(role domain.Role) NavigationResponse {
	acc := role.Access()
	return NavigationResponse{
		Role:         acc.Role,
		Home:         acc.Home,
		Capabilities: acc.Capabilities,
		Links:        acc.Nav,
	}
}

func (s *Service) Me(ctx context.Context, userID int64) (*MeResponse, error) {
	p, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &MeResponse{Profile: p, Navigation: Navigation(p.UserType)}
	if p.UserType == domain.RoleMechanic {
		m, err := s.mechanics.GetOrCreate(ctx, p)
		if err != nil {
			return nil, err
		}
		out.Mechanic = m
	}
	return out, nil
}

func (s *Service) UpdateMe(ctx context.Context, userID int64, req UpdateMeRequest) (*domain.Profile, error) {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("full_name", req.FullName)
	set("phone", req.Phone)
	set("address", req.Address)
	set("avatar_url", req.AvatarURL)
	set("business_name", req.BusinessName)

	if name, ok := fields["full_name"]; ok && name == "" {
		return nil, ErrInvalidRequest
	}

	p, err := s.profiles.UpdateFields(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// UploadAvatar stores an image and points the profile at it. The previous
// avatar object, if we stored it, is removed.
func (s *Service) UploadAvatar(ctx context.Context, userID int64, fh *multipart.FileHeader) (*domain.Profile, error) {
	p, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	obj, err := storage.Save(ctx, s.store, avatarPrefix, fh, s.maxUpload)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) || errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrInvalidMimeType) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAvatar, err)
		}
		return nil, err
	}
	if !strings.HasPrefix(obj.MimeType, "image/") {
		_ = s.store.Delete(ctx, obj.Key)
		return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidAvatar, obj.MimeType)
	}

	updated, err := s.profiles.UpdateFields(ctx, userID, map[string]any{"avatar_url": obj.URL})
	if err != nil {
		_ = s.store.Delete(ctx, obj.Key)
		return nil, err
	}
	if old := p.AvatarURL; old != "" {
		if key, ok := s.ownKey(old); ok {
			_ = s.store.Delete(ctx, key)
		}
	}
	return updated, nil
}

// ownKey maps one of our object URLs back to its key.
func (s *Service) ownKey(url string) (string, bool) {
	base := s.store.URL("")
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	return key, strings.HasPrefix(key, avatarPrefix+"/")
}

func (s *Service) GetMechanic(ctx context.Context, mechanicID int64) (*MechanicPublic, error) {
	p, err := s.get(ctx, mechanicID)
	if err != nil {
		return nil, err
	}
	if p.UserType != domain.RoleMechanic || p.IsBanned {
		return nil, ErrNotFound
	}
	m, err := s.mechanics.GetOrCreate(ctx, p)
	if err != nil {
		return nil, err
	}
	return &MechanicPublic{ID: p.ID, FullName: p.FullName, AvatarURL: p.AvatarURL, Mechanic: m}, nil
}

func (s *Service) OwnMechanic(ctx context.Context, userID int64) (*domain.Mechanic, error) {
	p, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.UserType != domain.RoleMechanic {
		return nil, ErrNotMechanic
	}
	return s.mechanics.GetOrCreate(ctx, p)
}

func (s *Service) UpdateMechanic(ctx context.Context, userID int64, req UpdateMechanicRequest) (*domain.Mechanic, error) {
	m, err := s.OwnMechanic(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.BusinessName != nil {
		name := strings.TrimSpace(*req.BusinessName)
		if name == "" {
			return nil, ErrInvalidRequest
		}
		m.BusinessName = name
	}
	if req.BusinessAddress != nil {
		m.BusinessAddress = strings.TrimSpace(*req.BusinessAddress)
	}
	if req.BusinessPhone != nil {
		m.BusinessPhone = strings.TrimSpace(*req.BusinessPhone)
	}
	if req.BusinessEmail != nil {
		m.BusinessEmail = strings.ToLower(strings.TrimSpace(*req.BusinessEmail))
	}
	if req.ServiceRadius != nil {
		if *req.ServiceRadius <= 0 {
			return nil, ErrInvalidRequest
		}
		m.ServiceRadius = *req.ServiceRadius
	}
	if req.Specialties != nil {
		m.Specialties = normalizeSet(*req.Specialties)
	}
	if req.Certifications != nil {
		m.Certifications = normalizeSet(*req.Certifications)
	}

	if err := s.mechanics.UpdateDetails(ctx, m); err != nil {
		return nil, err
	}
	return s.mechanics.Get(ctx, userID)
}

// SearchMechanics backs the public mechanic directory.
func (s *Service) SearchMechanics(ctx context.Context, q SearchMechanicsQuery) ([]repository.MechanicListing, error) {
	if q.MinRating < 0 || q.MinRating > 5 || q.Offset < 0 {
		return nil, ErrInvalidRequest
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultDirectoryLimit
	}
	if limit > maxDirectoryLimit {
		limit = maxDirectoryLimit
	}
	return s.mechanics.Search(ctx, repository.MechanicFilter{
		Query:     q.Q,
		Specialty: q.Specialty,
		MinRating: q.MinRating,
		Limit:     limit,
		Offset:    q.Offset,
	})
}

// normalizeSet trims, drops blanks and duplicates (case-insensitive) and
// sorts the values.
func normalizeSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Service) get(ctx context.Context, id int64) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}
