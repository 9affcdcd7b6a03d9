// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"audience-client/internal/domain"
)

// Account содержит ключи OAuth аккаунта
type Account struct {
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
}

type accountFile struct {
	AudienceAPI Account `yaml:"audience_api"`
}

// Settings содержит параметры сборки аудитории
type Settings struct {
	AccountID           string `yaml:"account_id"`
	SegmentBuildMode    string `yaml:"segment_build_mode"`
	Inbox               string `yaml:"inbox"`
	Outbox              string `yaml:"outbox"`
	Verbose             bool   `yaml:"verbose"`
	AudienceName        string `yaml:"audience_name"`
	SegmentName         string `yaml:"segment_name"`
	AddAudienceMetadata bool   `yaml:"add_audience_metadata"`
	SerializeOutput     bool   `yaml:"serialize_output"`
	ExportXLSX          bool   `yaml:"export_xlsx"`
}

// API содержит параметры подключения к сервису
type API struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ChunkSize      int    `yaml:"chunk_size"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type settingsFile struct {
	Settings  Settings         `yaml:"audience_settings"`
	Groupings domain.Groupings `yaml:"audience_groupings"`
	API       API              `yaml:"api"`
	Logging   Logging          `yaml:"logging"`
}

// Config содержит конфигурацию приложения
type Config struct {
	Account   Account
	Settings  Settings
	Groupings domain.Groupings
	API       API
	Logging   Logging
}

// Load загружает ключи аккаунта и настройки. Переменные окружения
// (в том числе из .env) имеют приоритет над файлами.
func Load(accountPath, settingsPath string) (*Config, error) {
	// Отсутствие .env - нормальная ситуация
	_ = godotenv.Load()

	cfg := defaultConfig()

	if err := loadAccount(accountPath, cfg); err != nil {
		return nil, err
	}
	if err := loadSettings(settingsPath, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Settings: Settings{
			Inbox:        DefaultInbox,
			Outbox:       DefaultOutbox,
			AudienceName: DefaultAudienceName,
			SegmentName:  DefaultSegmentName,
		},
		API: API{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: int(DefaultAPITimeout / time.Second),
			ChunkSize:      DefaultChunkSize,
		},
		Logging: Logging{Level: DefaultLogLevel},
	}
}

// loadAccount читает файл с ключами. Отсутствующий файл допустим,
// если ключи заданы через окружение.
func loadAccount(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("не удалось прочитать файл аккаунта %s: %w", path, err)
	}

	var f accountFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("не удалось разобрать YAML аккаунта: %w", err)
	}
	cfg.Account = f.AudienceAPI
	return nil
}

// loadSettings накладывает значения из файла настроек на значения по умолчанию.
func loadSettings(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("не удалось прочитать файл настроек %s: %w", path, err)
	}

	f := settingsFile{
		Settings: cfg.Settings,
		API:      cfg.API,
		Logging:  cfg.Logging,
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("не удалось разобрать YAML настроек: %w", err)
	}

	cfg.Settings = f.Settings
	cfg.Groupings = f.Groupings
	cfg.API = f.API
	cfg.Logging = f.Logging
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Account.ConsumerKey = getEnv("AUDIENCE_CONSUMER_KEY", cfg.Account.ConsumerKey)
	cfg.Account.ConsumerSecret = getEnv("AUDIENCE_CONSUMER_SECRET", cfg.Account.ConsumerSecret)
	cfg.Account.AccessToken = getEnv("AUDIENCE_ACCESS_TOKEN", cfg.Account.AccessToken)
	cfg.Account.AccessTokenSecret = getEnv("AUDIENCE_ACCESS_TOKEN_SECRET", cfg.Account.AccessTokenSecret)
	cfg.Settings.AccountID = getEnv("AUDIENCE_ACCOUNT_ID", cfg.Settings.AccountID)
	cfg.API.BaseURL = getEnv("AUDIENCE_BASE_URL", cfg.API.BaseURL)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	if v := getEnv("AUDIENCE_TIMEOUT_SECONDS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый AUDIENCE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.API.TimeoutSeconds = n
	}
	return nil
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Account.ConsumerKey == "" || c.Account.ConsumerSecret == "" {
		return fmt.Errorf("audience_api.consumer_key и audience_api.consumer_secret не могут быть пустыми")
	}
	if c.Account.AccessToken == "" || c.Account.AccessTokenSecret == "" {
		return fmt.Errorf("audience_api.access_token и audience_api.access_token_secret не могут быть пустыми")
	}

	if _, ok := domain.ParseBuildMode(c.Settings.SegmentBuildMode); !ok {
		return fmt.Errorf("audience_settings.segment_build_mode должен быть одним из: followed, engaged, impressed, tailored")
	}
	if c.BuildMode() != domain.BuildModeNone && c.Settings.AccountID == "" {
		return fmt.Errorf("audience_settings.account_id обязателен при заданном segment_build_mode")
	}

	if c.Settings.Inbox == "" {
		return fmt.Errorf("audience_settings.inbox не может быть пустым")
	}
	if c.Settings.Outbox == "" {
		return fmt.Errorf("audience_settings.outbox не может быть пустым")
	}

	for name, g := range c.Groupings {
		if len(g.GroupBy) == 0 {
			return fmt.Errorf("audience_groupings.%s.group_by не может быть пустым", name)
		}
	}

	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds должно быть положительным")
	}
	if c.API.ChunkSize <= 0 || c.API.ChunkSize > DefaultChunkSize {
		return fmt.Errorf("api.chunk_size должен быть в диапазоне 1-%d", DefaultChunkSize)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}

// Timeout возвращает таймаут запросов к сервису.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// BuildMode возвращает разобранный режим сборки сегмента.
func (c *Config) BuildMode() domain.BuildMode {
	mode, _ := domain.ParseBuildMode(c.Settings.SegmentBuildMode)
	return mode
}

// AudienceName возвращает имя аудитории или пустую строку, если имя не задано.
func (c *Config) AudienceName() string {
	if !HaveName(c.Settings.AudienceName) {
		return ""
	}
	return strings.TrimSpace(c.Settings.AudienceName)
}

// SegmentNames разбивает segment_name по запятым, отбрасывая пустые значения.
func (c *Config) SegmentNames() []string {
	var names []string
	for _, part := range strings.Split(c.Settings.SegmentName, ",") {
		part = strings.TrimSpace(part)
		if HaveName(part) {
			names = append(names, part)
		}
	}
	return names
}

// HaveName сообщает, задано ли имя. Значения none и nil означают отсутствие имени.
func HaveName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "nil":
		return false
	}
	return true
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
