// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Store        StoreConfig             `mapstructure:"store"`
	Letters      LettersConfig           `mapstructure:"letters"`
	Eligibility  EligibilityConfig       `mapstructure:"eligibility"`
	LLM          LLMConfig               `mapstructure:"llm"`
	HTTP         HTTPConfig              `mapstructure:"http"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Brand       string `mapstructure:"brand"` // lender name printed in replies and letters
}

type StoreConfig struct {
	CustomersPath string `mapstructure:"customers_path"`
}

type LettersConfig struct {
	OutputDir          string  `mapstructure:"output_dir"`
	AnnualInterestRate float64 `mapstructure:"annual_interest_rate"` // percent, 12 means 12% p.a.
}

// EligibilityConfig carries the fallback loan application used when the
// conversation has not supplied its own figures.
type EligibilityConfig struct {
	UseCustomerProfile  bool  `mapstructure:"use_customer_profile"`
	DefaultAmount       int64 `mapstructure:"default_amount"`
	DefaultTenureMonths int   `mapstructure:"default_tenure_months"`
	DefaultSalary       int64 `mapstructure:"default_salary"`
	DefaultEMI          int64 `mapstructure:"default_emi"`
}

type LLMConfig struct {
	BaseURL             string   `mapstructure:"base_url"`
	APIKey              string   `mapstructure:"api_key"`
	DefaultModel        string   `mapstructure:"default_model"`
	AllowedModels       []string `mapstructure:"allowed_models"`
	SystemPrompt        string   `mapstructure:"system_prompt"`
	Timeout             int      `mapstructure:"timeout"` // milliseconds, 0 keeps the client default
	RateLimitPerSession int      `mapstructure:"rate_limit_per_session"`
	RateLimitWindow     int      `mapstructure:"rate_limit_window"` // milliseconds
}

type HTTPConfig struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether a Postgres host was configured.
func (p PostgresConfig) Enabled() bool { return p.Host != "" }

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Address != "" }

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds settings for outbound cloud services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			TopicARN string `mapstructure:"topic_arn"`
			Endpoint string `mapstructure:"endpoint"` // optional, e.g. http://localhost:4566
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
