// internal/config/config.go
//
// This package handles configuration and the .grader directory structure.
// Every directory grader runs in gets a .grader/ folder holding the config
// file and the session logs. Credentials come from the environment (or a
// .env file next to .grader/), never from config.yaml.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// GraderDir is the name of the directory we create in each working directory
	GraderDir = ".grader"

	// EnvBaseURL overrides canvas.base_url from config.yaml.
	EnvBaseURL = "CANVAS_BASE_URL"
	// EnvAccessToken carries the Canvas API token. It is required.
	EnvAccessToken = "CANVAS_ACCESS_TOKEN"

	defaultFetchTimeout = 30 * time.Second
	defaultEditor       = "vi"
	defaultShell        = "sh"
)

const defaultProjectConfigYAML = `# grader configuration
version: 1

canvas:
  # Overridden by CANVAS_BASE_URL. The access token always comes from CANVAS_ACCESS_TOKEN.
  base_url: ""

workspace:
  # Submissions are extracted into <dir>/<sortable name>. Relative to this directory.
  dir: .

fetch:
  # Maximum concurrent profile requests. 0 means one request per submission.
  max_concurrency: 0
  timeout: 30s

review:
  # Empty values fall back to $EDITOR / $SHELL, then vi / sh.
  editor: ""
  shell: ""
`

// CanvasConfig describes the remote Canvas instance.
type CanvasConfig struct {
	BaseURL string `yaml:"base_url"`
}

// WorkspaceConfig controls where submissions are extracted.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

// FetchConfig tunes the profile fetch fan-out and HTTP timeouts.
type FetchConfig struct {
	MaxConcurrency int    `yaml:"max_concurrency"`
	Timeout        string `yaml:"timeout"`
}

// ReviewConfig overrides the external programs used during review.
type ReviewConfig struct {
	Editor string `yaml:"editor"`
	Shell  string `yaml:"shell"`
}

// ProjectConfig models .grader/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Review    ReviewConfig    `yaml:"review"`
}

// Config holds the runtime configuration for grader.
type Config struct {
	// ProjectDir is the directory where the user ran `grader` from
	ProjectDir string

	// GraderProjectDir is ProjectDir/.grader
	GraderProjectDir string

	// BaseURL and AccessToken identify the Canvas instance after env overrides.
	BaseURL     string
	AccessToken string

	Project ProjectConfig

	fetchTimeout time.Duration
}

// InitGraderDir creates the .grader directory structure in the given directory.
//
// Structure created:
// .grader/
// ├── config.yaml
// └── logs/         <- journal.log and http.log
func InitGraderDir(projectDir string) error {
	graderDir := filepath.Join(projectDir, GraderDir)
	if err := os.MkdirAll(filepath.Join(graderDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(graderDir, "config.yaml"))
}

// NewConfig loads .env, config.yaml and the environment for projectDir.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(projectDir, ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir:       projectDir,
		GraderProjectDir: filepath.Join(projectDir, GraderDir),
		Project:          defaultProjectConfig(),
		fetchTimeout:     defaultFetchTimeout,
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.GraderProjectDir, "logs")
}

// JournalPath returns the session journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.GraderProjectDir, "config.yaml")
}

// WorkspaceDir returns the absolute directory submissions are extracted under.
func (c *Config) WorkspaceDir() string {
	return resolvePath(c.ProjectDir, c.Project.Workspace.Dir)
}

// MaxConcurrency returns the profile fetch limit; 0 means unbounded.
func (c *Config) MaxConcurrency() int {
	return c.Project.Fetch.MaxConcurrency
}

// FetchTimeout returns the per-request HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	if c.fetchTimeout <= 0 {
		return defaultFetchTimeout
	}
	return c.fetchTimeout
}

// Editor resolves the review editor: config, then $EDITOR, then vi.
func (c *Config) Editor() string {
	return firstNonEmpty(c.Project.Review.Editor, os.Getenv("EDITOR"), defaultEditor)
}

// Shell resolves the review shell: config, then $SHELL, then sh.
func (c *Config) Shell() string {
	return firstNonEmpty(c.Project.Review.Shell, os.Getenv("SHELL"), defaultShell)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	c.fetchTimeout = parsed.Fetch.timeout()
	return nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = strings.TrimRight(c.Project.Canvas.BaseURL, "/")
	if value := strings.TrimSpace(os.Getenv(EnvBaseURL)); value != "" {
		c.BaseURL = strings.TrimRight(value, "/")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("config: %s is not set and canvas.base_url is empty", EnvBaseURL)
	}
	c.AccessToken = strings.TrimSpace(os.Getenv(EnvAccessToken))
	if c.AccessToken == "" {
		return fmt.Errorf("config: %s environment variable is not set", EnvAccessToken)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Workspace: WorkspaceConfig{Dir: "."},
		Fetch:     FetchConfig{Timeout: defaultFetchTimeout.String()},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Workspace.Dir) == "" {
		pc.Workspace.Dir = "."
	}
	if strings.TrimSpace(pc.Fetch.Timeout) == "" {
		pc.Fetch.Timeout = defaultFetchTimeout.String()
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Canvas.BaseURL = strings.TrimSpace(pc.Canvas.BaseURL)
	pc.Workspace.Dir = strings.TrimSpace(pc.Workspace.Dir)
	pc.Fetch.Timeout = strings.TrimSpace(pc.Fetch.Timeout)
	pc.Review.Editor = strings.TrimSpace(pc.Review.Editor)
	pc.Review.Shell = strings.TrimSpace(pc.Review.Shell)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Canvas.BaseURL != "" && !strings.HasPrefix(pc.Canvas.BaseURL, "http://") && !strings.HasPrefix(pc.Canvas.BaseURL, "https://") {
		return fmt.Errorf("canvas.base_url must start with http:// or https://")
	}
	if pc.Fetch.MaxConcurrency < 0 {
		return fmt.Errorf("fetch.max_concurrency must be >= 0")
	}
	d, err := time.ParseDuration(pc.Fetch.Timeout)
	if err != nil {
		return fmt.Errorf("fetch.timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	return nil
}

func (fc FetchConfig) timeout() time.Duration {
	d, err := time.ParseDuration(fc.Timeout)
	if err != nil || d <= 0 {
		return defaultFetchTimeout
	}
	return d
}

// loadDotEnv populates the environment from path without overriding
// variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
