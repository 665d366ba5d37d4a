package library

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries everything the binaries wire into the services. Librarian
// credentials are configuration-supplied; there is no built-in account.
type Config struct {
	Database struct {
		Path string
	}
	Librarian struct {
		Username string
		Password string
	}
	Circulation struct {
		LoanPeriodDays int
		DailyFineRate  string
	}
}

// LoadConfig reads configuration from the given file (optional), falling back
// to library.yaml in the working directory, with LIBRARY_* environment
// overrides and built-in defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "library.db")
	v.SetDefault("librarian.username", "admin")
	// No default password: librarian login stays disabled until configured.
	v.SetDefault("librarian.password", "")
	v.SetDefault("circulation.loanperioddays", 14)
	v.SetDefault("circulation.dailyfinerate", "5.00")

	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("library")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Defaults plus env is a valid configuration.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
