// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env"`
	StorageConnectionString string        `yaml:"storage_connection_string"`
	RabbitMQConnection      string        `yaml:"rabbitmq_connection"`
	RabbitMQMaxRetries      int           `yaml:"rabbitmq_max_retries"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTP                    `yaml:"smtp"`
	PaperIndex              `yaml:"paper_index"`
	Reranker                `yaml:"reranker"`
	PaymentProvider         `yaml:"payment_provider"`
	Federated               `yaml:"federated_provider"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// SMTP структура для настройки отправки почты
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	AppURL   string `yaml:"app_url"`
}

// PaperIndex структура для настройки клиента внешнего индекса статей
type PaperIndex struct {
	PaperIndexURL     string        `yaml:"paper_index_url"`
	PaperIndexTimeout time.Duration `yaml:"paper_index_timeout"`
}

// Reranker структура для настройки клиента переранжирования языковой моделью
type Reranker struct {
	RerankerURL     string        `yaml:"reranker_url"`
	RerankerAPIKey  string        `yaml:"reranker_api_key"`
	RerankerModel   string        `yaml:"reranker_model"`
	RerankerTimeout time.Duration `yaml:"reranker_timeout"`
}

// PaymentProvider структура для настройки платёжного провайдера
type PaymentProvider struct {
	PaymentAPIURL    string `yaml:"payment_api_url"`
	PaymentSecretKey string `yaml:"payment_secret_key"`
}

// Federated структура для настройки проверки федеративных сессий
type Federated struct {
	FederatedAPIURL  string        `yaml:"federated_api_url"`
	FederatedTimeout time.Duration `yaml:"federated_timeout"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RabbitMQConnection: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"PaperIndex:\n"+
			"  URL: %s\n"+
			"  Timeout: %s\n"+
			"Reranker:\n"+
			"  URL: %s\n"+
			"  Model: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.RabbitMQConnection,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.PaperIndexURL,
		c.PaperIndexTimeout,
		c.RerankerURL,
		c.RerankerModel,
	)
}
