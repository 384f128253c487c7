// Package models содержит доменные структуры системы: пользователей,
// академические коды, глобальные настройки и результаты поиска статей.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Статусы подписки пользователя.
const (
	SubscriptionNone           = "none"
	SubscriptionTrial          = "trial"
	SubscriptionActive         = "active"
	SubscriptionAcademicTester = "academic_tester"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                  string     // Уникальный идентификатор пользователя
	Email                string     // Электронная почта (уникальная)
	PasswordHash         string     // Хэш пароля; пустой для федеративных аккаунтов
	IsPremium            bool       // Флаг премиум-доступа, выставляется админом
	IsAdmin              bool       // Флаг администратора
	IsAcademicTester     bool       // Флаг академического тестировщика (погашенный код)
	SubscriptionStatus   string     // none, trial, active или academic_tester
	SearchesUsed         int        // Количество использованных поисков
	SearchesLimit        int        // Лимит поисков для бесплатного тарифа
	SubscriptionExpire   *time.Time // Дата истечения оплаченной подписки
	PaystackCustomerCode string     // Код клиента платёжного провайдера
	ResetToken           string     // Токен сброса пароля
	ResetTokenExpiry     *time.Time // Срок действия токена сброса
	CreatedAt            time.Time
}

// Badge возвращает отображаемый статус пользователя: Premium, Academic или Free.
// Статусы взаимоисключающие, приоритет у Premium.
func (u *User) Badge() string {
	switch {
	case u.IsPremium:
		return "Premium"
	case u.IsAcademicTester:
		return "Academic"
	default:
		return "Free"
	}
}
