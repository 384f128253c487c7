package models

import "time"

// SystemSettings — глобальные настройки сервиса, единственная запись в базе.
// Отсутствующая запись эквивалентна выключенному свободному доступу.
type SystemSettings struct {
	FreeAccessEnabled bool       `json:"free_access_enabled"`         // Включен ли глобальный бесплатный доступ
	FreeAccessUntil   *time.Time `json:"free_access_until,omitempty"` // До какого момента действует; nil — бессрочно
	UpdatedAt         time.Time  `json:"updated_at"`
}

// FreeAccessActive сообщает, действует ли глобальный бесплатный доступ
// на момент now. Просроченный дедлайн отключает доступ без изменения записи.
func (s SystemSettings) FreeAccessActive(now time.Time) bool {
	if !s.FreeAccessEnabled {
		return false
	}
	return s.FreeAccessUntil == nil || now.Before(*s.FreeAccessUntil)
}
