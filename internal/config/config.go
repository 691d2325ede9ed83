package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/socialpost/internal/common"
)

// Config is the root configuration loaded from YAML.
type Config struct {
	Publisher PublisherConfig `yaml:"publisher"`
	Graph     GraphConfig     `yaml:"graph"`
	Retry     RetryConfig     `yaml:"retry"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Sync      SyncConfig      `yaml:"sync"`
}

// PublisherConfig holds the batch run settings.
type PublisherConfig struct {
	PayloadDir      string `yaml:"payloadDir"`
	ImageRoot       string `yaml:"imageRoot"`       // root of the per-account image folders
	ToPublishDir    string `yaml:"toPublishDir"`    // per-account subfolder holding pending images
	DisplayTimezone string `yaml:"displayTimezone"` // used for log output only
	LogLevel        string `yaml:"logLevel"`        // debug|info|warn|error
	DryRun          bool   `yaml:"dryRun"`
}

// GraphConfig selects the Graph API endpoint.
type GraphConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig is the fixed-delay retry policy applied to publish and sync calls.
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// LedgerConfig selects where published ids are recorded.
type LedgerConfig struct {
	Backend string `yaml:"backend"` // json|sqlite
	Path    string `yaml:"path"`
}

// SyncConfig selects how the ledger is made durable after each publish.
type SyncConfig struct {
	Type   string           `yaml:"type"` // git|github|none
	Git    GitSyncConfig    `yaml:"git"`
	GitHub GitHubSyncConfig `yaml:"github"`
}

// GitSyncConfig commits and pushes the ledger from an existing working tree.
type GitSyncConfig struct {
	RepoDir               string        `yaml:"repoDir"`
	Remote                string        `yaml:"remote"`
	Branch                string        `yaml:"branch"` // empty pushes HEAD to its upstream
	AuthorName            string        `yaml:"authorName"`
	AuthorEmail           string        `yaml:"authorEmail"`
	CommitMessageTemplate string        `yaml:"commitMessageTemplate"`
	Auth                  GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig holds optional basic auth injected into the push URL.
type GitAuthConfig struct {
	Username string `yaml:"username"`
	Token    string `yaml:"token"` // supports env expansion
}

// GitHubSyncConfig writes the ledger through the GitHub REST contents API.
type GitHubSyncConfig struct {
	RepositoryOwner       string           `yaml:"repositoryOwner"`
	RepositoryName        string           `yaml:"repositoryName"`
	Branch                string           `yaml:"branch"`
	Path                  string           `yaml:"path"` // path of the ledger inside the repository
	CommitMessageTemplate string           `yaml:"commitMessageTemplate"`
	AuthorName            string           `yaml:"authorName"`
	AuthorEmail           string           `yaml:"authorEmail"`
	APIBaseURL            string           `yaml:"apiBaseUrl"` // optional, default https://api.github.com
	Auth                  GitHubAuthConfig `yaml:"auth"`
}

// GitHubAuthConfig holds token-based auth (Personal Access Token).
type GitHubAuthConfig struct {
	Token string `yaml:"token"` // PAT; supports env expansion
}

// Load reads YAML config from path, expands environment variables, and validates it.
// If path is empty, it will attempt to read from env var SOCIALPOST_CONFIG, then default to "config.yaml".
// A missing default config.yaml is not an error: the defaults describe the usual repository layout.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("SOCIALPOST_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - reading sanitized config file path is expected
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			data = nil
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// Publisher defaults
	if strings.TrimSpace(cfg.Publisher.PayloadDir) == "" {
		cfg.Publisher.PayloadDir = common.DefaultPayloadDir
	}
	if strings.TrimSpace(cfg.Publisher.ImageRoot) == "" {
		cfg.Publisher.ImageRoot = "."
	}
	if strings.TrimSpace(cfg.Publisher.ToPublishDir) == "" {
		cfg.Publisher.ToPublishDir = common.DefaultToPublishDir
	}
	if strings.TrimSpace(cfg.Publisher.DisplayTimezone) == "" {
		cfg.Publisher.DisplayTimezone = "Europe/Zurich"
	}
	if strings.TrimSpace(cfg.Publisher.LogLevel) == "" {
		cfg.Publisher.LogLevel = "info"
	}

	// Graph defaults
	if strings.TrimSpace(cfg.Graph.BaseURL) == "" {
		cfg.Graph.BaseURL = common.DefaultGraphBaseURL
	}
	if strings.TrimSpace(cfg.Graph.Version) == "" {
		cfg.Graph.Version = common.DefaultGraphVersion
	}
	if cfg.Graph.Timeout == 0 {
		cfg.Graph.Timeout = 60 * time.Second
	}

	// Retry defaults
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = common.DefaultRetryAttempts
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = 5 * time.Second
	}

	// Ledger defaults
	if strings.TrimSpace(cfg.Ledger.Backend) == "" {
		cfg.Ledger.Backend = common.LedgerBackendJSON
	}
	cfg.Ledger.Backend = strings.ToLower(cfg.Ledger.Backend)
	if strings.TrimSpace(cfg.Ledger.Path) == "" {
		cfg.Ledger.Path = filepath.Join("scripts", common.DefaultLedgerFile)
	}

	// Sync defaults
	if strings.TrimSpace(cfg.Sync.Type) == "" {
		cfg.Sync.Type = common.SyncTypeNone
	}
	cfg.Sync.Type = strings.ToLower(cfg.Sync.Type)
	if cfg.Sync.Git.RepoDir == "" {
		cfg.Sync.Git.RepoDir = "."
	}
	if cfg.Sync.Git.Remote == "" {
		cfg.Sync.Git.Remote = common.GitRemoteName
	}
	if cfg.Sync.Git.AuthorName == "" {
		cfg.Sync.Git.AuthorName = "github-actions"
	}
	if cfg.Sync.Git.AuthorEmail == "" {
		cfg.Sync.Git.AuthorEmail = "actions@github.com"
	}
	if cfg.Sync.Git.Auth.Username == "" {
		cfg.Sync.Git.Auth.Username = "x-access-token"
	}
	if strings.TrimSpace(cfg.Sync.GitHub.APIBaseURL) == "" {
		cfg.Sync.GitHub.APIBaseURL = "https://api.github.com"
	}
	cfg.Sync.GitHub.Path = strings.TrimPrefix(normalizeSlashes(cfg.Sync.GitHub.Path), "/")
}

func validate(cfg *Config) error {
	if cfg.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if cfg.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	switch cfg.Ledger.Backend {
	case common.LedgerBackendJSON, common.LedgerBackendSQLite:
	default:
		return fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
	if _, err := ParseLogLevel(cfg.Publisher.LogLevel); err != nil {
		return err
	}

	switch cfg.Sync.Type {
	case common.SyncTypeNone, common.SyncTypeGit:
	case common.SyncTypeGitHub:
		g := cfg.Sync.GitHub
		if strings.TrimSpace(g.RepositoryOwner) == "" {
			return fmt.Errorf("sync.github.repositoryOwner is required")
		}
		if strings.TrimSpace(g.RepositoryName) == "" {
			return fmt.Errorf("sync.github.repositoryName is required")
		}
		if strings.TrimSpace(g.Branch) == "" {
			return fmt.Errorf("sync.github.branch is required")
		}
		if strings.TrimSpace(g.Path) == "" {
			return fmt.Errorf("sync.github.path is required")
		}
		if strings.TrimSpace(g.Auth.Token) == "" {
			return fmt.Errorf("sync.github.auth.token is required")
		}
	default:
		return fmt.Errorf("unsupported sync type %q", cfg.Sync.Type)
	}
	return nil
}

func normalizeSlashes(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "./")
}
