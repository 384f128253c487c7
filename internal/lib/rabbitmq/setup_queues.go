package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации в exchange "notifications".
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationsExchange — exchange, через который публикуются все письма.
const NotificationsExchange = "notifications"

// Очереди писем, которые обслуживает notification-sender.
const (
	WelcomeQueue       = "welcome_emails"
	PasswordResetQueue = "password_reset_emails"

	WelcomeRoutingKey       = "welcome"
	PasswordResetRoutingKey = "password_reset"
)

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: WelcomeQueue, RoutingKey: WelcomeRoutingKey},
		{QueueName: PasswordResetQueue, RoutingKey: PasswordResetRoutingKey},
	}
}
