package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haircarepro/haircarepro/internal/careplan"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
	"github.com/haircarepro/haircarepro/internal/notify"
	"github.com/haircarepro/haircarepro/internal/render"
	"github.com/haircarepro/haircarepro/internal/reminder"
	"github.com/haircarepro/haircarepro/internal/repository"
)

// PlanStore persists care plans and reads dashboard data.
type PlanStore interface {
	CreateCarePlan(ctx context.Context, userID string, survey model.Survey, plan model.CarePlan) (*model.CarePlanRecord, error)
	GetLatestCarePlan(ctx context.Context, userID string) (*model.CarePlanRecord, error)
	ListProgress(ctx context.Context, userID string) ([]*model.ProgressEntry, error)
}

// DocumentRenderer renders a plan to a PDF.
type DocumentRenderer interface {
	Render(ctx context.Context, plan model.CarePlan, userID, username string) (*render.Document, error)
}

// EmailDispatcher hands a plan email off without waiting for delivery.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, job notify.PlanEmailJob)
}

// CarePlanService turns survey submissions into stored, rendered and
// emailed care plans.
type CarePlanService struct {
	generator careplan.Generator
	plans     PlanStore
	renderer  DocumentRenderer
	emails    EmailDispatcher
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewCarePlanService creates a new CarePlanService.
func NewCarePlanService(generator careplan.Generator, plans PlanStore, renderer DocumentRenderer, emails EmailDispatcher, logger *slog.Logger, recorder metrics.Recorder) *CarePlanService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CarePlanService{
		generator: generator,
		plans:     plans,
		renderer:  renderer,
		emails:    emails,
		logger:    logger.With("component", "service.careplan"),
		metrics:   recorder,
		now:       time.Now,
	}
}

// SurveyResult is what the result page shows after a submission.
// PDFPath is empty when the plan failed or could not be rendered.
type SurveyResult struct {
	Record  *model.CarePlanRecord
	Plan    model.CarePlan
	PDFPath string
}

// SubmitSurvey generates a plan for survey, stores it, renders it and queues
// the plan email. Generation failures come back as an error plan, not an
// error; storage failures are returned.
func (s *CarePlanService) SubmitSurvey(ctx context.Context, user *model.SessionUser, survey model.Survey) (*SurveyResult, error) {
	start := time.Now()
	plan := s.generator.Generate(ctx, careplan.BuildPrompt(survey))
	s.metrics.ObserveCarePlanDuration(time.Since(start))

	if plan.IsError() {
		s.metrics.IncCarePlanGenerated(metrics.StatusFailed)
	} else {
		s.metrics.IncCarePlanGenerated(metrics.StatusSuccess)
	}

	record, err := s.plans.CreateCarePlan(ctx, user.ID, survey, plan)
	if err != nil {
		return nil, fmt.Errorf("store care plan: %w", err)
	}

	result := &SurveyResult{Record: record, Plan: plan}
	if plan.IsError() {
		return result, nil
	}

	doc, err := s.renderer.Render(ctx, plan, user.ID, user.Username)
	if err != nil {
		s.logger.Error("care plan render failed", "care_plan_id", record.ID, "error", err)
		return result, nil
	}
	result.PDFPath = doc.PublicPath

	s.emails.Dispatch(ctx, notify.PlanEmailJob{
		PlanID:   record.ID,
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		FilePath: doc.FilePath,
		QueuedAt: s.now().UnixMilli(),
	})

	return result, nil
}

// DashboardData is rendered on the dashboard page.
type DashboardData struct {
	Username   string
	Email      string
	Alert      string
	LatestPlan *model.CarePlanRecord
	Progress   []*model.ProgressEntry
}

// Dashboard loads the user's latest plan, routine alert and progress.
func (s *CarePlanService) Dashboard(ctx context.Context, user *model.SessionUser) (*DashboardData, error) {
	data := &DashboardData{
		Username: user.Username,
		Email:    user.Email,
	}

	latest, err := s.plans.GetLatestCarePlan(ctx, user.ID)
	switch {
	case err == nil:
		data.LatestPlan = latest
		data.Alert = reminder.DashboardAlert(latest, user.Username, s.now())
	case errors.Is(err, repository.ErrCarePlanNotFound):
	default:
		return nil, fmt.Errorf("load latest care plan: %w", err)
	}

	progress, err := s.plans.ListProgress(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	data.Progress = progress

	return data, nil
}
