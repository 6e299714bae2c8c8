// Package config loads reqboard settings from a YAML file, a .env file and
// the environment, in increasing order of precedence. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/h0rv/reqboard/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "reqboard.yml"

// DefaultBaseURL is where the requirements service listens in development.
const DefaultBaseURL = "http://localhost:5000"

// Environment overrides. Credentials are read from the environment by
// auth.EnvProvider.
const (
	EnvBaseURL        = "REQBOARD_BASE_URL"
	EnvProject        = "REQBOARD_PROJECT"
	EnvLogFile        = "REQBOARD_LOG_FILE"
	EnvNotifyFailures = "REQBOARD_NOTIFY_FAILURES"
)

var (
	// ErrNoBaseURL indicates a config without a usable service address.
	ErrNoBaseURL = errors.New("base_url is not set")
	// ErrNoProject indicates a config with neither a project id nor a
	// project list to pick from.
	ErrNoProject = errors.New("project_id is not set and no projects are listed")
)

// Column is one board column. An empty label is derived from the status.
type Column struct {
	Status string `yaml:"status"`
	Label  string `yaml:"label"`
}

// Project is an entry of the project picker.
type Project struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Config holds every setting.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	ProjectID      string        `yaml:"project_id"`
	Projects       []Project     `yaml:"projects"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Columns        []Column      `yaml:"columns"`
	NotifyFailures bool          `yaml:"notify_failures"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	LogFile        string        `yaml:"log_file"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cols := make([]Column, 0, len(domain.DefaultBoardStatuses))
	for _, s := range domain.DefaultBoardStatuses {
		cols = append(cols, Column{Status: string(s), Label: s.Label()})
	}
	return &Config{
		BaseURL: DefaultBaseURL,
		Columns: cols,
	}
}

// Load reads the config file at path over the defaults, then .env, then the
// environment. An empty path reads DefaultPath if it exists; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	fileCfg := *c
	fileCfg.Columns = nil
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to unmarshal YAML config %s: %w", path, err)
	}
	if len(fileCfg.Columns) == 0 {
		fileCfg.Columns = c.Columns
	}
	*c = fileCfg
	return nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = getEnv(EnvBaseURL, c.BaseURL)
	c.ProjectID = getEnv(EnvProject, c.ProjectID)
	c.LogFile = getEnv(EnvLogFile, c.LogFile)

	if v, ok := os.LookupEnv(EnvNotifyFailures); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNotifyFailures, err)
		}
		c.NotifyFailures = b
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

// normalize trims values, drops columns without a status or with a repeated
// one, and fills missing labels. Projects are deduplicated the same way; a
// single listed project is selected when no project id is set.
func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.ProjectID = strings.TrimSpace(c.ProjectID)

	seenProject := make(map[string]bool, len(c.Projects))
	projects := make([]Project, 0, len(c.Projects))
	for _, p := range c.Projects {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" || seenProject[p.ID] {
			continue
		}
		seenProject[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			p.Name = "Project " + p.ID
		}
		projects = append(projects, p)
	}
	c.Projects = projects
	if c.ProjectID == "" && len(c.Projects) == 1 {
		c.ProjectID = c.Projects[0].ID
	}

	seen := make(map[string]bool, len(c.Columns))
	cols := make([]Column, 0, len(c.Columns))
	for _, col := range c.Columns {
		col.Status = strings.TrimSpace(col.Status)
		if col.Status == "" || seen[col.Status] {
			continue
		}
		seen[col.Status] = true
		if strings.TrimSpace(col.Label) == "" {
			col.Label = domain.Status(col.Status).Label()
		}
		cols = append(cols, col)
	}
	c.Columns = cols
}

// Validate checks the settings the board cannot run without. A missing
// project id is fine when there are projects to pick from.
func (c *Config) Validate() error {
	if err := c.ValidateService(); err != nil {
		return err
	}
	if c.ProjectID == "" && len(c.Projects) == 0 {
		return ErrNoProject
	}
	if len(c.Columns) == 0 {
		return errors.New("no board columns configured")
	}
	return nil
}

// ValidateService checks only what is needed to talk to the service.
func (c *Config) ValidateService() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrNoBaseURL, c.BaseURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// Statuses returns the column statuses in board order.
func (c *Config) Statuses() []domain.Status {
	out := make([]domain.Status, 0, len(c.Columns))
	for _, col := range c.Columns {
		out = append(out, domain.Status(col.Status))
	}
	return out
}

// Label returns the configured label for status.
func (c *Config) Label(status domain.Status) string {
	for _, col := range c.Columns {
		if col.Status == string(status) {
			return col.Label
		}
	}
	return status.Label()
}

// LoginURL is the service's form login endpoint.
func (c *Config) LoginURL() string {
	return c.BaseURL + "/login"
}
