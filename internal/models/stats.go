package models

// AdminStats — агрегированная статистика для панели администратора.
type AdminStats struct {
	TotalUsers      int `json:"total_users"`
	PremiumUsers    int `json:"premium_users"`
	FreeUsers       int `json:"free_users"`
	AcademicTesters int `json:"academic_testers"`
	TotalSearches   int `json:"total_searches"`
	CodesGenerated  int `json:"codes_generated"`
	CodesUsed       int `json:"codes_used"`
}
