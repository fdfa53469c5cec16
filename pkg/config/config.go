package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		OpsPort         int           `yaml:"ops_port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	FRED struct {
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url"`
		Series       []string      `yaml:"series"`
		SyncInterval time.Duration `yaml:"sync_interval"`
		Timeout      time.Duration `yaml:"timeout"`
		RateLimit    int           `yaml:"rate_limit"` // requests per minute
	} `yaml:"fred"`
	Markets struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"markets"`
	Study struct {
		Start             string        `yaml:"start"`      // first month of the aligned frame, YYYY-MM-DD
		BreakDate         string        `yaml:"break_date"` // subsample split, YYYY-MM-DD
		MinMonths         int           `yaml:"min_months"`
		HACLags           int           `yaml:"hac_lags"`
		RollingWindow     int           `yaml:"rolling_window"`
		ConfidenceLevel   float64       `yaml:"confidence_level"`
		VarianceThreshold float64       `yaml:"variance_threshold"`
		Indicators        []string      `yaml:"indicators"`
		RecomputeInterval time.Duration `yaml:"recompute_interval"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
		Redis             struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"study"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.FRED.APIKey = v
	}
	if v := os.Getenv("FRED_SERIES"); v != "" {
		c.FRED.Series = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_SYMBOLS"); v != "" {
		c.Markets.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.Markets.APIKey = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.FRED.APIKey == "" {
		return fmt.Errorf("fred.api_key is required")
	}
	if len(c.FRED.Series) == 0 {
		return fmt.Errorf("fred.series cannot be empty")
	}
	if len(c.Markets.Symbols) == 0 {
		return fmt.Errorf("markets.symbols cannot be empty")
	}
	if c.Study.ConfidenceLevel != 0 && (c.Study.ConfidenceLevel <= 0 || c.Study.ConfidenceLevel >= 1) {
		return fmt.Errorf("study.confidence_level must be in (0, 1), got %v", c.Study.ConfidenceLevel)
	}
	if c.Study.BreakDate != "" {
		if _, err := time.Parse("2006-01-02", c.Study.BreakDate); err != nil {
			return fmt.Errorf("study.break_date: %w", err)
		}
	}
	if c.Study.Start != "" {
		if _, err := time.Parse("2006-01-02", c.Study.Start); err != nil {
			return fmt.Errorf("study.start: %w", err)
		}
	}
	return nil
}

// StudyStart returns the parsed study start date, zero when unset.
func (c *Config) StudyStart() time.Time {
	t, _ := time.Parse("2006-01-02", c.Study.Start)
	return t
}

// BreakDate returns the parsed subsample break date. When unset it falls
// back to 2020-03-31, the COVID policy-response month end.
func (c *Config) BreakDate() time.Time {
	if c.Study.BreakDate == "" {
		return time.Date(2020, 3, 31, 0, 0, 0, 0, time.UTC)
	}
	t, _ := time.Parse("2006-01-02", c.Study.BreakDate)
	return t
}
