package models

import "time"

// AcademicCode представляет одноразовый промокод академического доступа.
// После погашения код становится неизменяемым и не подлежит удалению.
type AcademicCode struct {
	ID        string     `json:"id"`                // Уникальный идентификатор записи
	Code      string     `json:"code"`              // Строка вида PREFIX-XXXXXXXX
	IsUsed    bool       `json:"is_used"`           // Признак погашения кода
	UsedBy    *string    `json:"used_by,omitempty"` // UID пользователя, погасившего код
	CreatedAt time.Time  `json:"created_at"`        // Дата создания
	UsedAt    *time.Time `json:"used_at,omitempty"` // Дата погашения
}
