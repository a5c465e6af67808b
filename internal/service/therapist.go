package service

import (
	"context"
	"net/mail"

	"github.com/rs/zerolog/log"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/repository"
)

type TherapistService struct {
	therapistRepo repository.TherapistRepository
}

func NewTherapistService(therapistRepo repository.TherapistRepository) *TherapistService {
	return &TherapistService{therapistRepo: therapistRepo}
}

func (s *TherapistService) Get(ctx context.Context, id string) (*model.Therapist, error) {
	therapist, err := s.therapistRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if therapist == nil {
		return nil, apperrors.NotFound("Therapist")
	}
	return therapist, nil
}

func (s *TherapistService) List(ctx context.Context) ([]model.Therapist, error) {
	therapists, err := s.therapistRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return therapists, nil
}

func (s *TherapistService) Create(ctx context.Context, params model.CreateTherapistParams) (*model.Therapist, error) {
	if params.Name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if params.Email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, apperrors.InvalidInput("email", "not a valid address")
	}

	therapist, err := s.therapistRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("therapistId", therapist.ID).Msg("therapist created")
	return therapist, nil
}

func (s *TherapistService) Delete(ctx context.Context, id string) error {
	therapist, err := s.therapistRepo.DeleteByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if therapist == nil {
		return apperrors.NotFound("Therapist")
	}
	log.Info().Str("therapistId", id).Msg("therapist deleted")
	return nil
}
