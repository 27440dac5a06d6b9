package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Task        TaskConfig        `mapstructure:"task"        validate:"required"`
	Notifier    NotifierConfig    `mapstructure:"notifier"    validate:"required"`
	Unsubscribe UnsubscribeConfig `mapstructure:"unsubscribe" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// ConnectAttempts bounds the exponential-backoff connection loop run
	// once at startup. The backoff starts at ConnectBackoffMillis and
	// doubles per attempt.
	ConnectAttempts      int `mapstructure:"connect_attempts"       validate:"gte=1"`
	ConnectBackoffMillis int `mapstructure:"connect_backoff_millis" validate:"gte=1"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"gte=1"`
	QueueSize           int `mapstructure:"queue_size"             validate:"gte=1"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
}

// NotifierConfig selects and configures the active notification transports.
type NotifierConfig struct {
	// FromAddress is the sender address stamped on outgoing messages.
	FromAddress string `mapstructure:"from_address" validate:"required,email"`

	SMTP SMTPConfig `mapstructure:"smtp"`
	SES  SESConfig  `mapstructure:"ses"`

	// LogOnly replaces real transports with a logging notifier. Used for
	// local development.
	LogOnly bool `mapstructure:"log_only"`
}

// SMTPConfig contains SMTP transport settings. The transport is enabled
// when Host is non-empty.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// SESConfig contains AWS SES transport settings. The transport is enabled
// when Region is non-empty. When AccessKey is empty the default AWS
// credential chain is used.
type SESConfig struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// UnsubscribeConfig contains settings for signed opt-out tokens.
type UnsubscribeConfig struct {
	TokenSecret        string `mapstructure:"token_secret"         validate:"required,min=32"`
	TokenLifetimeHours int    `mapstructure:"token_lifetime_hours" validate:"gte=1"`

	// LinkBaseURL is the externally reachable opt-out endpoint embedded in
	// dispatched message bodies as `<LinkBaseURL>?token=...`.
	LinkBaseURL string `mapstructure:"link_base_url" validate:"required,url"`
}
