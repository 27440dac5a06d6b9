package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, if present, a
// config.yaml file in the working directory. Environment variables take
// precedence over file values and use the CAMPAIGN_ prefix with underscores
// for nesting (e.g. CAMPAIGN_DATABASE_URL, CAMPAIGN_SERVER_PORT).
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMPAIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults cover it.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Registering empty defaults makes env-only keys visible to Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("notifier.from_address", "")
	v.SetDefault("notifier.smtp.host", "")
	v.SetDefault("notifier.smtp.username", "")
	v.SetDefault("notifier.smtp.password", "")
	v.SetDefault("notifier.smtp.use_tls", false)
	v.SetDefault("notifier.ses.region", "")
	v.SetDefault("notifier.ses.access_key", "")
	v.SetDefault("notifier.ses.secret_key", "")
	v.SetDefault("unsubscribe.token_secret", "")

	v.SetDefault("database.connect_attempts", 5)
	v.SetDefault("database.connect_backoff_millis", 500)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)

	v.SetDefault("notifier.log_only", false)
	v.SetDefault("notifier.smtp.port", 587)

	v.SetDefault("unsubscribe.token_lifetime_hours", 24 * 30)
	v.SetDefault("unsubscribe.link_base_url", "http://localhost:8080/unsubscribe")
}
