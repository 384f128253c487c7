package models

// PlanWeek — неделя плана чтения: даты, назначенные статьи и задачи.
type PlanWeek struct {
	Week   int      `json:"week"`
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Papers []Paper  `json:"papers"`
	Tasks  []string `json:"tasks"`
}

// ReadingPlan — помесячный план чтения, построенный из ранжированных статей.
type ReadingPlan struct {
	Count int        `json:"count"`
	Weeks []PlanWeek `json:"weeks"`
}
