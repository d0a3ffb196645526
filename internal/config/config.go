package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Tasks     TaskConfig      `mapstructure:"tasks" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the delegation token settings.
type AuthConfig struct {
	// TokenSecret is the shared secret delegation tokens are signed with.
	// Compromise of the secret invalidates all outstanding tokens.
	TokenSecret string `mapstructure:"token_secret" validate:"required,min=32"`

	// TokenTTLHours is the delegation token lifetime in hours.
	TokenTTLHours int `mapstructure:"token_ttl_hours" validate:"required,gt=0"`
}

// TaskConfig contains task assignment policy settings.
type TaskConfig struct {
	// ManagerIDs is the static allow-list of manager identities as a
	// comma-separated list (environment-friendly). A user's role is
	// recomputed against this list on every interaction.
	ManagerIDs string `mapstructure:"manager_ids" validate:"required"`

	// MaxActivePerExecutor caps how many tasks an executor may hold in
	// "taken" status simultaneously.
	MaxActivePerExecutor int `mapstructure:"max_active_per_executor" validate:"required,gt=0"`

	// Timezone is the IANA timezone name used for human-facing deadline
	// display (reports, reminder messages).
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// ManagerIDList parses the comma-separated manager allow-list into
// identities. Whitespace around entries is tolerated.
func (c TaskConfig) ManagerIDList() ([]int64, error) {
	parts := strings.Split(c.ManagerIDs, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid manager ID %q: %w", trimmed, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("manager allow-list is empty")
	}
	return ids, nil
}

// SchedulerConfig contains reminder and expiry sweep settings.
type SchedulerConfig struct {
	// ReminderLeadMinutes lists how many minutes before a deadline each
	// reminder fires. Leads larger than the remaining time are skipped.
	ReminderLeadMinutes []int `mapstructure:"reminder_lead_minutes" validate:"required,min=1,dive,gt=0"`

	// SweepIntervalSeconds is how often the expiry sweep runs.
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
}
