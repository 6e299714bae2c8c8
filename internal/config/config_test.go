package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/h0rv/reqboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reqboard.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvBaseURL, EnvProject, EnvLogFile, EnvNotifyFailures} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, domain.DefaultBoardStatuses, cfg.Statuses())
	assert.Equal(t, "Collected", cfg.Columns[0].Label)
	assert.False(t, cfg.NotifyFailures)
	assert.Zero(t, cfg.HTTPTimeout)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
base_url: http://req.example.com:5000/
project_id: "3"
username: alice
password: secret
notify_failures: true
http_timeout: 5s
log_file: /tmp/reqboard.log
columns:
  - status: collected
    label: Inbox
  - status: done
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://req.example.com:5000", cfg.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "3", cfg.ProjectID)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.True(t, cfg.NotifyFailures)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/reqboard.log", cfg.LogFile)
	assert.Equal(t, []Column{
		{Status: "collected", Label: "Inbox"},
		{Status: "done", Label: "Done"},
	}, cfg.Columns)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileWithoutColumnsKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "project_id: \"1\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, domain.DefaultBoardStatuses, cfg.Statuses())
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "base_url: http://file:1\nproject_id: \"1\"\n")
	t.Setenv(EnvBaseURL, "http://env:2")
	t.Setenv(EnvProject, "9")
	t.Setenv(EnvNotifyFailures, "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:2", cfg.BaseURL)
	assert.Equal(t, "9", cfg.ProjectID)
	assert.True(t, cfg.NotifyFailures)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "columns: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad bool override", func(t *testing.T) {
		t.Setenv(EnvNotifyFailures, "sometimes")
		_, err := Load(writeConfig(t, ""))
		assert.Error(t, err)
	})
}

func TestNormalize_Columns(t *testing.T) {
	cfg := &Config{Columns: []Column{
		{Status: " confirmed "},
		{Status: ""},
		{Status: "confirmed", Label: "Again"},
		{Status: "in_progress"},
	}}

	cfg.normalize()

	assert.Equal(t, []Column{
		{Status: "confirmed", Label: "Confirmed"},
		{Status: "in_progress", Label: "In Progress"},
	}, cfg.Columns)
}

func TestNormalize_Projects(t *testing.T) {
	cfg := &Config{Projects: []Project{
		{ID: " 4 ", Name: "Shop"},
		{ID: ""},
		{ID: "4", Name: "Duplicate"},
		{ID: "5"},
	}}

	cfg.normalize()

	assert.Equal(t, []Project{
		{ID: "4", Name: "Shop"},
		{ID: "5", Name: "Project 5"},
	}, cfg.Projects)
	assert.Empty(t, cfg.ProjectID, "several projects leave the choice to the picker")
}

func TestNormalize_SingleProjectIsSelected(t *testing.T) {
	cfg := &Config{Projects: []Project{{ID: "8", Name: "Only"}}}

	cfg.normalize()

	assert.Equal(t, "8", cfg.ProjectID)

	cfg = &Config{ProjectID: "2", Projects: []Project{{ID: "8"}}}
	cfg.normalize()
	assert.Equal(t, "2", cfg.ProjectID, "an explicit id wins")
}

func TestValidateService(t *testing.T) {
	cfg := &Config{BaseURL: "http://localhost:5000"}
	assert.NoError(t, cfg.ValidateService(), "a project is not needed to call the service")
	assert.ErrorIs(t, cfg.Validate(), ErrNoProject)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.ProjectID = "1"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: ErrNoBaseURL},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "localhost:5000" }, wantErr: ErrNoBaseURL},
		{name: "no project", mutate: func(c *Config) { c.ProjectID = "" }, wantErr: ErrNoProject},
		{name: "project list instead of id", mutate: func(c *Config) {
			c.ProjectID = ""
			c.Projects = []Project{{ID: "1", Name: "Shop"}, {ID: "2", Name: "Blog"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := valid()
	cfg.Columns = nil
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.HTTPTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestLabel(t *testing.T) {
	cfg := &Config{Columns: []Column{{Status: "collected", Label: "Inbox"}}}

	assert.Equal(t, "Inbox", cfg.Label(domain.StatusCollected))
	assert.Equal(t, "In Progress", cfg.Label(domain.StatusInProgress))
}

func TestLoginURL(t *testing.T) {
	cfg := &Config{BaseURL: "http://localhost:5000"}
	assert.Equal(t, "http://localhost:5000/login", cfg.LoginURL())
}
