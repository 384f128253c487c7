// Package services оркестрирует поиск статей: проверку прав, обращение
// к внешнему индексу, переранжирование языковой моделью, кеширование
// и учет использования.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
	entitlement "github.com/researchnest/researchnest/internal/services/entitlement"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

const cacheTTL = 15 * time.Minute

// QuotaExceededError — квота бесплатных поисков исчерпана.
// Несет фактические числа для ответа клиенту.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("search quota exceeded: %d of %d used", e.Used, e.Limit)
}

// EntitlementChecker вычисляет права пользователя и учитывает поиски.
type EntitlementChecker interface {
	Check(ctx context.Context, userUID string) (models.Entitlement, error)
	RecordSearch(ctx context.Context, userUID string, ent models.Entitlement) error
}

// PaperIndex — клиент внешнего индекса научных статей.
type PaperIndex interface {
	Search(ctx context.Context, topic string, keywords []string, limit int) ([]models.Paper, error)
}

// Reranker — клиент переранжирования результатов языковой моделью.
type Reranker interface {
	Rerank(ctx context.Context, papers []models.Paper, researchGoal string, target int) ([]models.Paper, error)
}

// ResultCache кеширует выдачу индекса. Права доступа не кешируются никогда.
type ResultCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// SearchService выполняет поиск статей от имени пользователя.
type SearchService struct {
	entitlements EntitlementChecker
	index        PaperIndex
	reranker     Reranker
	cache        ResultCache
	log          *slog.Logger
}

// NewSearchService создает новый экземпляр SearchService.
func NewSearchService(entitlements EntitlementChecker, index PaperIndex,
	reranker Reranker, cache ResultCache, log *slog.Logger) *SearchService {
	return &SearchService{
		entitlements: entitlements,
		index:        index,
		reranker:     reranker,
		cache:        cache,
		log:          log,
	}
}

// Run выполняет поиск. Порядок: свежая проверка прав, списание квоты,
// кеш, внешний индекс, переранжирование (для привилегированных с целью
// исследования). Квота списывается условным атомарным обновлением до
// обращения к индексу: из двух параллельных запросов на последний
// бесплатный поиск выдачу получает ровно один. Сбой переранжирования
// откатывает к исходному порядку.
func (s *SearchService) Run(ctx context.Context, userUID string, q models.SearchQuery) ([]models.Paper, models.Entitlement, error) {
	const op = "services.SearchService.Run"

	ent, err := s.entitlements.Check(ctx, userUID)
	if err != nil {
		return nil, models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.CanSearch {
		return nil, ent, &QuotaExceededError{Used: ent.SearchesUsed, Limit: ent.SearchesLimit}
	}

	if err := s.entitlements.RecordSearch(ctx, userUID, ent); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, ent, &QuotaExceededError{Used: ent.SearchesLimit, Limit: ent.SearchesLimit}
		}
		return nil, ent, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.IsPrivileged {
		ent.SearchesUsed++
	}

	limit := entitlement.CapResultLimit(ent, q.Limit)
	useAI := q.UseAIFilter && ent.Features.AIFilter && q.ResearchGoal != ""

	key := cacheKey(q, limit, useAI)
	var papers []models.Paper
	if found, err := s.cache.Get(key, &papers); err != nil {
		s.log.Warn("cache read failed", sl.Err(err))
	} else if found {
		return papers, ent, nil
	}

	upstreamLimit := limit
	if useAI {
		// Модели нужен запас кандидатов, чтобы было из чего выбирать.
		upstreamLimit = limit * 2
	}
	papers, err = s.index.Search(ctx, q.Topic, q.Keywords, upstreamLimit)
	if err != nil {
		return nil, ent, fmt.Errorf("%s: %w", op, err)
	}

	if useAI && len(papers) > 0 {
		ranked, err := s.reranker.Rerank(ctx, papers, q.ResearchGoal, limit)
		if err != nil {
			s.log.Warn("reranker failed, falling back to index order", sl.Err(err))
			papers = truncate(papers, limit)
		} else {
			papers = ranked
		}
	} else {
		papers = truncate(papers, limit)
	}

	if err := s.cache.Set(key, papers, cacheTTL); err != nil {
		s.log.Warn("cache write failed", sl.Err(err))
	}

	return papers, ent, nil
}

func truncate(papers []models.Paper, limit int) []models.Paper {
	if len(papers) > limit {
		return papers[:limit]
	}
	return papers
}

func cacheKey(q models.SearchQuery, limit int, useAI bool) string {
	// Переранжированный порядок зависит от цели исследования,
	// поэтому цель входит в ключ наравне с темой.
	goal := ""
	if useAI {
		goal = strings.ToLower(strings.TrimSpace(q.ResearchGoal))
	}
	return fmt.Sprintf("search:%s:%s:%d:%t:%s",
		strings.ToLower(strings.TrimSpace(q.Topic)),
		strings.ToLower(strings.Join(q.Keywords, ",")),
		limit, useAI, goal)
}
