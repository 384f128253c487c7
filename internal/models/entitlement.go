package models

// FeatureSet перечисляет премиальные возможности, доступные пользователю.
type FeatureSet struct {
	AIFilter       bool `json:"ai_filter"`       // Переранжирование результатов языковой моделью
	PlanGeneration bool `json:"plan_generation"` // Генерация плана чтения
	Export         bool `json:"export"`          // Экспорт библиографии
}

// Entitlement — разрешения и лимиты пользователя, вычисленные на момент запроса.
// Значение никогда не кешируется между запросами: глобальные настройки
// и флаги пользователя могут измениться в любой момент.
type Entitlement struct {
	CanSearch           bool       `json:"can_search"`
	IsPrivileged        bool       `json:"is_privileged"`
	SearchesUsed        int        `json:"searches_used"`
	SearchesLimit       int        `json:"searches_limit"`
	MaxResultsPerSearch int        `json:"max_results_per_search"`
	Features            FeatureSet `json:"features"`
}
