package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models  ModelsConfig  `yaml:"models"`
	ICD     ICDConfig     `yaml:"icd"`
	S3      S3Config      `yaml:"s3"`
	Prompts PromptsConfig `yaml:"prompts"`
	App     AppSpecific   `yaml:"app"`
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultChat string              `yaml:"default_chat"` // Алиас модели по умолчанию (например, "gpt-4o")
	Definitions map[string]ModelDef `yaml:"definitions"`  // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`    // "openai" или "azure"
	ModelName   string        `yaml:"model_name"`  // Реальное имя модели / deployment name для Azure
	APIKey      string        `yaml:"api_key"`     // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`    // Endpoint (обязателен для azure)
	APIVersion  string        `yaml:"api_version"` // Версия Azure API (например, "2024-02-01")
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // Go умеет парсить строки вида "60s", "1m"
}

// ICDConfig — настройки доступа к классификационному API (WHO ICD-11).
type ICDConfig struct {
	ClientID       string `yaml:"client_id"`       // Поддерживает ${VAR}
	ClientSecret   string `yaml:"client_secret"`   // Поддерживает ${VAR}
	TokenEndpoint  string `yaml:"token_endpoint"`  // OAuth2 client credentials endpoint
	SearchEndpoint string `yaml:"search_endpoint"` // Базовый URL поиска (без ?q=)
	APIVersion     string `yaml:"api_version"`     // Заголовок API-Version
	Language       string `yaml:"language"`        // Заголовок Accept-Language
	RateLimit      int    `yaml:"rate_limit"`      // Запросов в минуту
	BurstLimit     int    `yaml:"burst_limit"`     // Burst для rate limiter
	Timeout        string `yaml:"timeout"`         // Timeout для HTTP запросов (например, "30s")
	TokenizedLinks bool   `yaml:"tokenized_links"` // Добавлять access_token к ссылкам результатов
}

// GetDefaults возвращает копию конфигурации с заполненными дефолтами.
//
// Endpoints по умолчанию указывают на публичный API WHO.
func (c *ICDConfig) GetDefaults() ICDConfig {
	result := *c

	if result.TokenEndpoint == "" {
		result.TokenEndpoint = "https://icdaccessmanagement.who.int/connect/token"
	}
	if result.SearchEndpoint == "" {
		result.SearchEndpoint = "https://id.who.int/icd/release/11/2019-04/mms/search"
	}
	if result.APIVersion == "" {
		result.APIVersion = "v2"
	}
	if result.Language == "" {
		result.Language = "en"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 60 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 5
	}
	if result.Timeout == "" {
		result.Timeout = "30s"
	}

	return result
}

// S3Config — настройки объектного хранилища для архива транскриптов.
//
// Секция опциональна: при пустом endpoint архивирование выключено.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled сообщает, сконфигурировано ли хранилище транскриптов.
func (c *S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// PromptsConfig — откуда загружать персону (системный промпт).
type PromptsConfig struct {
	Source   string `yaml:"source"`   // "default", "file" или "database"
	Path     string `yaml:"path"`     // Путь к файлу персоны (source=file)
	Database string `yaml:"database"` // Путь к sqlite базе (source=database)
	Table    string `yaml:"table"`    // Имя таблицы персон (default: "personas")
	ID       string `yaml:"id"`       // Идентификатор персоны в источнике
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug bool `yaml:"debug"`
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	// Секреты (ключи API, client_secret) так и попадают в конфиг —
	// в YAML хранятся только плейсхолдеры.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.DefaultChat != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultChat]; !ok {
			return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
		}
	}
	if c.ICD.ClientID == "" || c.ICD.ClientSecret == "" {
		return fmt.Errorf("icd.client_id and icd.client_secret are required")
	}
	switch c.Prompts.Source {
	case "", "default":
		// встроенная персона
	case "file":
		if c.Prompts.Path == "" {
			return fmt.Errorf("prompts.path is required for source=file")
		}
	case "database":
		if c.Prompts.Database == "" {
			return fmt.Errorf("prompts.database is required for source=database")
		}
	default:
		return fmt.Errorf("unknown prompts.source: '%s'", c.Prompts.Source)
	}
	return nil
}

// GetChatModel возвращает конфигурацию модели по умолчанию или по имени.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}
