// Package feeds polls upstream data endpoints on cron schedules and replaces
// the matching engine snapshots.
package feeds

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-intel/internal/errors"
)

// DefaultTimeout bounds one feed request.
const DefaultTimeout = 20 * time.Second

// DefaultSchedule is used when a feed names none.
const DefaultSchedule = "@every 5m"

// Feed is one upstream endpoint.
type Feed struct {
	Name     string            `yaml:"name" json:"name"`
	Kind     Kind              `yaml:"kind" json:"kind"`
	URL      string            `yaml:"url" json:"url"`
	Schedule string            `yaml:"schedule" json:"schedule"`
	Timeout  time.Duration     `yaml:"timeout" json:"timeout" doc:"Request timeout in nanoseconds"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"-"`
	Disabled bool              `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Config is the feeds file.
type Config struct {
	Feeds []Feed `yaml:"feeds"`
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load reads a feeds file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("feeds", "read "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a feeds document, filling defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError("feeds", "parse", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.Name == "" {
			f.Name = string(f.Kind)
		}
		if seen[f.Name] {
			return errors.NewConfigError("feeds", fmt.Sprintf("duplicate feed %q", f.Name), nil)
		}
		seen[f.Name] = true
		if !f.Kind.Valid() {
			return errors.NewConfigError("feeds", fmt.Sprintf("feed %q: unknown kind %q", f.Name, f.Kind), nil)
		}
		if u, err := url.Parse(f.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.NewConfigError("feeds", fmt.Sprintf("feed %q: invalid url %q", f.Name, f.URL), err)
		}
		if f.Schedule == "" {
			f.Schedule = DefaultSchedule
		}
		if _, err := scheduleParser.Parse(f.Schedule); err != nil {
			return errors.NewConfigError("feeds", fmt.Sprintf("feed %q: invalid schedule", f.Name), err)
		}
		if f.Timeout <= 0 {
			f.Timeout = DefaultTimeout
		}
	}
	return nil
}
