package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config структура конфигурации
type Config struct {
	Port           string
	WSPort         string
	JWTSecret      string
	DatabaseURL    string
	DatabaseConfig DatabaseConfig
	BidPolicy      BidPolicyConfig
	Notify         NotifyConfig
	AppEnv         string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// BidPolicyConfig содержит параметры политики повторных ставок
type BidPolicyConfig struct {
	MaxRebids     int           // Максимальное число ставок покупателя на один товар
	RebidCooldown time.Duration // Минимальный интервал между ставками на один товар
}

// NotifyConfig содержит параметры доставки уведомлений
type NotifyConfig struct {
	PollInterval time.Duration // Рекомендуемый интервал опроса для клиентов без live-соединения
}

// LoadConfig загружает переменные из .env
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "agrolink_user"),
		Password: getEnv("PGPASSWORD", "agrolink_pass"),
		Name:     getEnv("PGDATABASE", "agrolink"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		WSPort:         getEnv("WS_PORT", "8081"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURL:    dbURL,
		DatabaseConfig: dbConfig,
		BidPolicy: BidPolicyConfig{
			MaxRebids:     getEnvInt("BID_MAX_REBIDS", 10),
			RebidCooldown: time.Duration(getEnvInt("BID_REBID_COOLDOWN_SECONDS", 30)) * time.Second,
		},
		Notify: NotifyConfig{
			PollInterval: time.Duration(getEnvInt("NOTIFY_POLL_INTERVAL_SECONDS", 10)) * time.Second,
		},
		AppEnv: getEnv("APP_ENV", "production"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("❌ Ошибка: Не заданы обязательные переменные окружения")
	}

	return cfg
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения или использует дефолтное значение
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ Неверное значение %s=%q, используем %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
