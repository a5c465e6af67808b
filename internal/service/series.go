package service

import (
	"context"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/repository"
)

// SeriesService is read-only: series are created and deleted through the
// recurring session operations on SessionService.
type SeriesService struct {
	seriesRepo repository.SeriesRepository
}

func NewSeriesService(seriesRepo repository.SeriesRepository) *SeriesService {
	return &SeriesService{seriesRepo: seriesRepo}
}

func (s *SeriesService) Get(ctx context.Context, id string) (*model.Series, error) {
	series, err := s.seriesRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if series == nil {
		return nil, apperrors.NotFound("Series")
	}
	return series, nil
}

func (s *SeriesService) List(ctx context.Context) ([]model.Series, error) {
	series, err := s.seriesRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return series, nil
}
