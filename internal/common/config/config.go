package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"tls"`
	Prefetch int    `yaml:"prefetch"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type AutomationConfig struct {
	Enabled           bool          `yaml:"enabled"`
	AcknowledgeDelay  time.Duration `yaml:"acknowledge_delay"`
	BasePrepDelay     time.Duration `yaml:"base_preparation_delay"`
	ServingDelay      time.Duration `yaml:"serving_delay"`
	BillingDelay      time.Duration `yaml:"billing_delay"`
	TaxRate           float64       `yaml:"tax_rate"`
	KitchenCapacity   int           `yaml:"kitchen_capacity"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

type DecisionConfig struct {
	BasePrepMinutes    float64  `yaml:"base_prep_minutes"`
	SpecialPrepMinutes int      `yaml:"special_prep_minutes"`
	MinPrepMinutes     int      `yaml:"min_prep_minutes"`
	SpecialKeywords    []string `yaml:"special_keywords"`
	VIPKeyword         string   `yaml:"vip_keyword"`
	HighLoadThreshold  float64  `yaml:"high_load_threshold"`
	UrgentPriority     int      `yaml:"urgent_priority"`
	WaitMinutesPerStep float64  `yaml:"wait_minutes_per_step"`
	WaitScoreCap       float64  `yaml:"wait_score_cap"`
	UrgentBonus        float64  `yaml:"urgent_bonus"`
}

type NotificationsConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxWatch      time.Duration `yaml:"max_watch"`
	FeedbackDelay time.Duration `yaml:"feedback_delay"`
	Exchange      string        `yaml:"exchange"`
}

type StorageConfig struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
}

func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

type Auth0Config struct {
	Domain     string `yaml:"domain"`
	Audience   string `yaml:"audience"`
	AdminScope string `yaml:"admin_scope"`
}

func (a Auth0Config) Enabled() bool { return a.Domain != "" && a.Audience != "" }

type App struct {
	Env           string              `yaml:"env"`
	LogLevel      string              `yaml:"log_level"`
	Database      DatabaseConfig      `yaml:"database"`
	Rabbit        RabbitMQConfig      `yaml:"rabbitmq"`
	HTTP          HTTPConfig          `yaml:"http"`
	Automation    AutomationConfig    `yaml:"automation"`
	Decision      DecisionConfig      `yaml:"decision"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth0         Auth0Config         `yaml:"auth0"`
}

func Default() App {
	return App{
		Env:      "development",
		LogLevel: "info",
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "restaurant", Database: "restaurant", SSLMode: "disable"},
		Rabbit:   RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest", VHost: "/", Prefetch: 10},
		HTTP:     HTTPConfig{Port: 3000, ShutdownTimeout: 5 * time.Second, AllowedOrigins: []string{"*"}},
		Automation: AutomationConfig{
			Enabled:           true,
			AcknowledgeDelay:  3 * time.Second,
			BasePrepDelay:     30 * time.Second,
			ServingDelay:      10 * time.Second,
			BillingDelay:      5 * time.Second,
			TaxRate:           0.05,
			KitchenCapacity:   20,
			ReconcileInterval: time.Minute,
		},
		Decision: DecisionConfig{
			BasePrepMinutes:    10,
			SpecialPrepMinutes: 5,
			MinPrepMinutes:     5,
			SpecialKeywords:    []string{"special", "slow"},
			VIPKeyword:         "vip",
			HighLoadThreshold:  0.8,
			UrgentPriority:     8,
			WaitMinutesPerStep: 5,
			WaitScoreCap:       10,
			UrgentBonus:        5,
		},
		Notifications: NotificationsConfig{
			PollInterval:  5 * time.Second,
			MaxWatch:      2 * time.Hour,
			FeedbackDelay: 10 * time.Minute,
			Exchange:      "notifications_topic",
		},
		Storage: StorageConfig{Region: "us-east-1"},
		Auth0:   Auth0Config{AdminScope: "manage:automation"},
	}
}

// Load читает .env, затем YAML (если path не пустой), затем переменные окружения.
// Порядок приоритета: env > yaml > defaults.
func Load(path string) (App, error) {
	loadDotEnv()

	a := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &a); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&a); err != nil {
		return App{}, err
	}
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func loadDotEnv() {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	if err := godotenv.Load(".env." + env); err != nil {
		// в проде переменные задаются напрямую, отсутствие .env не ошибка
		_ = godotenv.Load()
	}
}

func applyEnv(a *App) error {
	a.Env = getEnv("GO_ENV", a.Env)
	a.LogLevel = getEnv("LOG_LEVEL", a.LogLevel)

	a.Database.Driver = getEnv("DB_DRIVER", a.Database.Driver)
	a.Database.Path = getEnv("DB_PATH", a.Database.Path)
	a.Database.Host = getEnv("DB_HOST", a.Database.Host)
	a.Database.User = getEnv("DB_USER", a.Database.User)
	a.Database.Password = getEnv("DB_PASSWORD", a.Database.Password)
	a.Database.Database = getEnv("DB_NAME", a.Database.Database)

	a.Rabbit.Host = getEnv("RABBITMQ_HOST", a.Rabbit.Host)
	a.Rabbit.User = getEnv("RABBITMQ_USER", a.Rabbit.User)
	a.Rabbit.Password = getEnv("RABBITMQ_PASSWORD", a.Rabbit.Password)

	a.Storage.Bucket = getEnv("AWS_S3_BUCKET", a.Storage.Bucket)
	a.Storage.Region = getEnv("AWS_REGION", a.Storage.Region)
	a.Storage.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", a.Storage.AccessKeyID)
	a.Storage.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", a.Storage.SecretAccessKey)

	a.Auth0.Domain = getEnv("AUTH0_DOMAIN", a.Auth0.Domain)
	a.Auth0.Audience = getEnv("AUTH0_AUDIENCE", a.Auth0.Audience)

	var err error
	if a.Database.Port, err = getEnvInt("DB_PORT", a.Database.Port); err != nil {
		return err
	}
	if a.Rabbit.Port, err = getEnvInt("RABBITMQ_PORT", a.Rabbit.Port); err != nil {
		return err
	}
	if a.HTTP.Port, err = getEnvInt("HTTP_PORT", a.HTTP.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("AUTOMATION_ENABLED"); ok && v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return fmt.Errorf("AUTOMATION_ENABLED: %w", perr)
		}
		a.Automation.Enabled = b
	}
	return nil
}

func (a App) Validate() error {
	var errs []string
	switch a.Database.Driver {
	case "postgres", "":
		if a.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
	case "sqlite":
	default:
		errs = append(errs, "database.driver must be postgres or sqlite")
	}
	if a.Rabbit.Host == "" {
		errs = append(errs, "rabbitmq.host is required")
	}
	if a.HTTP.Port <= 0 || a.HTTP.Port > 65535 {
		errs = append(errs, "http.port must be in 1..65535")
	}
	if a.Automation.KitchenCapacity <= 0 {
		errs = append(errs, "automation.kitchen_capacity must be positive")
	}
	if a.Automation.TaxRate < 0 {
		errs = append(errs, "automation.tax_rate must not be negative")
	}
	if a.Notifications.PollInterval <= 0 {
		errs = append(errs, "notifications.poll_interval must be positive")
	}
	if a.Notifications.MaxWatch < a.Notifications.PollInterval {
		errs = append(errs, "notifications.max_watch must be at least poll_interval")
	}
	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (a App) IsProduction() bool { return a.Env == "production" }

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
