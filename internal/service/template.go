package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/therapease/booking-server-go/internal/errors"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/repository"
)

type TemplateService struct {
	templateRepo  repository.TemplateRepository
	therapistRepo repository.TherapistRepository
}

func NewTemplateService(templateRepo repository.TemplateRepository, therapistRepo repository.TherapistRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo, therapistRepo: therapistRepo}
}

func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if template == nil {
		return nil, apperrors.NotFound("Template")
	}
	return template, nil
}

func (s *TemplateService) List(ctx context.Context) ([]model.Template, error) {
	templates, err := s.templateRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return templates, nil
}

func (s *TemplateService) Create(ctx context.Context, params model.CreateTemplateParams) (*model.Template, error) {
	if params.TherapistID == "" {
		return nil, apperrors.MissingRequired("therapistId")
	}
	if params.DurationInMinutes <= 0 {
		return nil, apperrors.InvalidInput("durationInMinutes", "must be positive")
	}
	if params.Vacancies <= 0 {
		return nil, apperrors.InvalidInput("vacancies", "must be positive")
	}
	if len(params.StartTimes) == 0 {
		return nil, apperrors.MissingRequired("startTimes")
	}
	if err := validateStartTimes(params.StartTimes); err != nil {
		return nil, err
	}

	therapist, err := s.therapistRepo.FindByID(ctx, params.TherapistID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if therapist == nil {
		return nil, apperrors.NotFound("Therapist")
	}

	template, err := s.templateRepo.Create(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("templateId", template.ID).Msg("template created")
	return template, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, params model.UpdateTemplateParams) (*model.Template, error) {
	if params.DurationInMinutes != nil && *params.DurationInMinutes <= 0 {
		return nil, apperrors.InvalidInput("durationInMinutes", "must be positive")
	}
	if params.Vacancies != nil && *params.Vacancies <= 0 {
		return nil, apperrors.InvalidInput("vacancies", "must be positive")
	}
	if params.StartTimes != nil {
		if err := validateStartTimes(params.StartTimes); err != nil {
			return nil, err
		}
	}

	template, err := s.templateRepo.Update(ctx, id, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if template == nil {
		return nil, apperrors.NotFound("Template")
	}

	log.Info().Str("templateId", id).Msg("template updated")
	return template, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	template, err := s.templateRepo.DeleteByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if template == nil {
		return apperrors.NotFound("Template")
	}
	log.Info().Str("templateId", id).Msg("template deleted")
	return nil
}

func validateStartTimes(times []string) error {
	for _, startTime := range times {
		if _, err := time.Parse("15:04", startTime); err != nil {
			return apperrors.InvalidInput("startTimes", "entries must be HH:MM clock values")
		}
	}
	return nil
}
