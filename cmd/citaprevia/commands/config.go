package commands

import (
	"fmt"
	"os"
	"time"

	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/configutil"
	"citaprevia/internal/notify"
)

const defaultConfigName = "citaprevia.json5"

type Config struct {
	BaseUrl        string  `json:"base_url"`
	UserAgent      string  `json:"user_agent"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	// RateLimit is in requests per second, a negative value disables it.
	RateLimit float64 `json:"rate_limit"`
	// CatalogPath may start with <dev_state>.
	CatalogPath string `json:"catalog_path"`
	// DumpDir receives full http transcripts when set, it may start with <dev_state>.
	DumpDir     string `json:"dump_dir"`
	Concurrency int    `json:"concurrency"`

	Smtp     *notify.SmtpConfig `json:"smtp"`
	NotifyTo []string           `json:"notify_to"`
	// WatchSchedule is a cron spec evaluated in Europe/Madrid.
	WatchSchedule string `json:"watch_schedule"`
}

var defaultConfig = Config{
	BaseUrl:        citaprevia.DefaultBaseUrl,
	UserAgent:      citaprevia.DefaultUserAgent,
	TimeoutSeconds: 30,
	RateLimit:      2,
	CatalogPath:    "<dev_state>/catalog.json",
	Concurrency:    4,
	WatchSchedule:  "*/10 7-22 * * *",
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// loadConfig reads the config at path. The default path is searched for up the directory
// tree and may be missing, an explicitly given one must exist.
func loadConfig(path string) (Config, error) {
	var config Config
	var err error
	if path == "" {
		config, err = configutil.ReadRecursively[Config](defaultConfigName)
		if os.IsNotExist(err) {
			err = nil
		}
	} else {
		config, err = configutil.ReadConfig[Config](path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return configutil.WithDefaults(config, defaultConfig)
}
