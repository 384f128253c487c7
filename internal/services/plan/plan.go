// Package services строит помесячный план чтения из ранжированных статей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/researchnest/researchnest/internal/models"
)

// ErrPremiumRequired — генерация плана доступна только привилегированным.
var ErrPremiumRequired = errors.New("plan generation requires premium access")

const (
	planWeeks       = 4
	maxPlanPapers   = 15
	defaultPlanSize = 12
)

// Каждая неделя получает один и тот же набор задач.
var weeklyTasks = []string{
	"Skim & decide priority",
	"Deep read top 2",
	"Write 5-bullet summary per paper",
	"Review notes + questions",
}

// EntitlementChecker вычисляет права пользователя.
type EntitlementChecker interface {
	Check(ctx context.Context, userUID string) (models.Entitlement, error)
}

// PlanService распределяет статьи по четырем неделям чтения.
type PlanService struct {
	entitlements EntitlementChecker
	log          *slog.Logger
}

// NewPlanService создает новый экземпляр PlanService.
func NewPlanService(entitlements EntitlementChecker, log *slog.Logger) *PlanService {
	return &PlanService{entitlements: entitlements, log: log}
}

// Generate строит план: берет до targetCount статей из переданного
// ранжированного списка (не больше пятнадцати) и раскладывает их
// по четырем неделям по кругу, начиная с сегодняшнего дня.
func (s *PlanService) Generate(ctx context.Context, userUID string, papers []models.Paper, targetCount int) (*models.ReadingPlan, error) {
	const op = "services.PlanService.Generate"

	ent, err := s.entitlements.Check(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.Features.PlanGeneration {
		return nil, ErrPremiumRequired
	}

	return BuildPlan(papers, targetCount, time.Now().UTC()), nil
}

// BuildPlan — чистая раскладка статей по неделям. Вынесена отдельно,
// чтобы тестировать распределение без прав и часов.
func BuildPlan(papers []models.Paper, targetCount int, start time.Time) *models.ReadingPlan {
	if targetCount < 1 {
		targetCount = defaultPlanSize
	}
	if targetCount > maxPlanPapers {
		targetCount = maxPlanPapers
	}
	if len(papers) > targetCount {
		papers = papers[:targetCount]
	}

	buckets := make([][]models.Paper, planWeeks)
	for i, p := range papers {
		week := i % planWeeks
		buckets[week] = append(buckets[week], p)
	}

	plan := &models.ReadingPlan{Count: len(papers)}
	for w := range planWeeks {
		weekStart := start.AddDate(0, 0, w*7)
		weekEnd := weekStart.AddDate(0, 0, 6)
		plan.Weeks = append(plan.Weeks, models.PlanWeek{
			Week:   w + 1,
			Start:  weekStart.Format("2006-01-02"),
			End:    weekEnd.Format("2006-01-02"),
			Papers: buckets[w],
			Tasks:  weeklyTasks,
		})
	}
	return plan
}
