package paperindex

import "github.com/researchnest/researchnest/internal/models"

// Запрос к внешнему индексу научных статей.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Ответ внешнего индекса.
type SearchResponse struct {
	Papers []models.Paper `json:"papers"`
	Total  int            `json:"total"`
}
