// Package conf loads the optional defaults file once, eagerly, at
// startup. The validated values are threaded explicitly into the
// connectivity gate and parameter readers; nothing reads configuration
// ambiently after startup.
package conf

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ResultDefaults are the global result-shaping defaults, overridable
// per task invocation.
type ResultDefaults struct {
	Flat     bool `mapstructure:"flat"`
	Label    bool `mapstructure:"label"`
	Annotate bool `mapstructure:"annotate"`
}

// NetCheck configures the internet tier of the connectivity gate. An
// empty destination list or Disabled short-circuits the gate to
// LAN-only.
type NetCheck struct {
	Disabled     bool     `mapstructure:"disabled"`
	Destinations []string `mapstructure:"destinations"`
	Attempts     int      `mapstructure:"attempts"`
}

// Gateway configures the LAN tier of the connectivity gate.
type Gateway struct {
	Attempts int `mapstructure:"attempts"`
	Deadline int `mapstructure:"deadline"`
}

// Database configures the optional Postgres result archive.
type Database struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Defaults is the validated contents of the defaults file.
type Defaults struct {
	Result     ResultDefaults `mapstructure:"result"`
	RequireNet NetCheck       `mapstructure:"require_net"`
	Gateway    Gateway        `mapstructure:"gateway"`
	StateFile  string         `mapstructure:"state_file"`
	Database   Database       `mapstructure:"database"`
}

// Load reads netrics.yaml from the working directory, ~/.netrics or
// /etc/netrics/, validates it, and returns the defaults. A missing file
// is fine: the built-in defaults apply.
func Load() (Defaults, error) {
	v := viper.New()
	v.SetConfigName("netrics")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.netrics")
	v.AddConfigPath("/etc/netrics/")

	v.SetDefault("result.flat", true)
	v.SetDefault("result.label", true)
	v.SetDefault("result.annotate", true)
	v.SetDefault("require_net.disabled", false)
	v.SetDefault("require_net.destinations", []string{"google.com", "facebook.com", "nytimes.com"})
	v.SetDefault("require_net.attempts", 3)
	v.SetDefault("gateway.attempts", 3)
	v.SetDefault("gateway.deadline", 5)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.sslmode", "disable")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Defaults{}, fmt.Errorf("reading defaults file: %v", err)
		}
	}

	var d Defaults
	if err := v.Unmarshal(&d); err != nil {
		return Defaults{}, fmt.Errorf("invalid defaults file: %v", err)
	}

	if path := os.Getenv("NETRICS_STATE_FILE"); path != "" {
		d.StateFile = path
	}

	if err := d.validate(); err != nil {
		return Defaults{}, err
	}

	return d, nil
}

func (d Defaults) validate() error {
	if d.RequireNet.Attempts < 1 {
		return errors.New("require_net.attempts: must be at least 1")
	}
	for _, dest := range d.RequireNet.Destinations {
		if dest == "" {
			return errors.New("require_net.destinations: empty destination")
		}
	}
	if d.Gateway.Attempts < 1 {
		return errors.New("gateway.attempts: must be at least 1")
	}
	if d.Gateway.Deadline < 0 {
		return errors.New("gateway.deadline: seconds must not be less than 0")
	}
	return nil
}
