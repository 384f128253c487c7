package models

// Paper — результат поиска во внешнем индексе научных статей.
type Paper struct {
	Title    string  `json:"title"`
	Year     *int    `json:"year,omitempty"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
	Abstract string  `json:"abstract,omitempty"`
}

// SearchQuery описывает параметры поиска: тема, до пяти ключевых слов,
// желаемое количество результатов и цель исследования для переранжирования.
type SearchQuery struct {
	Topic        string   `json:"topic" validate:"required,min=3"`
	Keywords     []string `json:"keywords" validate:"max=5"`
	Limit        int      `json:"limit"`
	ResearchGoal string   `json:"research_goal"`
	UseAIFilter  bool     `json:"use_ai_filter"`
}
