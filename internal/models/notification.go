package models

// WelcomeMessage сообщение для отправки приветственного письма
// новому пользователю после федеративного входа или регистрации.
type WelcomeMessage struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PasswordResetMessage сообщение для отправки письма со ссылкой
// на восстановление пароля.
type PasswordResetMessage struct {
	Email    string `json:"email"`
	ResetURL string `json:"reset_url"`
}
