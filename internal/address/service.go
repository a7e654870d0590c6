package address

import (
	"context"
	"log/slog"

	"github.com/doecerto/doecerto/internal/geo"
	"github.com/doecerto/doecerto/internal/geocode"
)

// Service wraps the repository with best-effort geocoding. A geocoding
// failure is logged and the address is stored without coordinates; the
// write itself never fails because Nominatim was unavailable.
type Service struct {
	repo     Repository
	geocoder geocode.Geocoder
	logger   *slog.Logger
}

// NewService creates an address service.
func NewService(repo Repository, geocoder geocode.Geocoder, logger *slog.Logger) *Service {
	return &Service{repo: repo, geocoder: geocoder, logger: logger}
}

// Create geocodes and stores a new address.
func (s *Service) Create(ctx context.Context, a *Address) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.fillCoordinates(ctx, a)
	return s.repo.Create(ctx, a)
}

// Update re-geocodes and updates an existing address. The caller is
// responsible for the ownership check.
func (s *Service) Update(ctx context.Context, a *Address) error {
	s.fillCoordinates(ctx, a)
	return s.repo.Update(ctx, a)
}

// GetByOwner retrieves the address of a donor or ONG.
func (s *Service) GetByOwner(ctx context.Context, userID int64) (*Address, error) {
	return s.repo.GetByOwner(ctx, userID)
}

// GetByID retrieves an address by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Address, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes an address.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// fillCoordinates resolves the address via Nominatim, leaving the
// coordinates empty on failure.
func (s *Service) fillCoordinates(ctx context.Context, a *Address) {
	if s.geocoder == nil {
		return
	}
	result, err := s.geocoder.Geocode(ctx, a.FullAddress())
	if err != nil {
		s.logger.Warn("geocoding failed, storing address without coordinates",
			"address", a.FullAddress(),
			"error", err,
		)
		a.Latitude = nil
		a.Longitude = nil
		a.Geohash = ""
		return
	}
	a.Latitude = &result.Latitude
	a.Longitude = &result.Longitude
	a.Geohash = geo.Encode(result.Latitude, result.Longitude, geo.DefaultPrecision)
}
