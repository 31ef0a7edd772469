package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultDatabaseFile = "actup.db"
	defaultTrackerFile  = "PR_TRACKER.md"
	defaultWorkers      = 4
	defaultReposLimit   = 100
)

// Settings is the top-level configuration for actup.
type Settings struct {
	// Token is the GitHub credential: inline, ${ENV_VAR}, or a file path.
	Token string `yaml:"token"`

	DatabaseFile string `yaml:"database_file"`
	TrackerFile  string `yaml:"tracker_file"`

	// Workers bounds the pool of concurrent repository workers.
	Workers int `yaml:"workers"`

	// PinTarget selects which tag pin_to_sha resolves: "current" (default,
	// preserves the version the repository already intends) or "latest".
	PinTarget PinTarget `yaml:"pin_target"`

	// Repositories are explicit scan/remediation targets ("owner/name").
	Repositories []string `yaml:"repositories"`

	ExcludeRepos      []string `yaml:"exclude_repos"`
	PopularReposLimit int      `yaml:"popular_repos_limit"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads and parses a settings file, expanding environment
// variables and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", unmarshalErr)
	}

	settings.Token = resolveToken(settings.Token)
	settings.applyDefaults()

	if validateErr := settings.validate(); validateErr != nil {
		return nil, validateErr
	}

	return &settings, nil
}

// FindSettingsFile searches standard locations for a settings file and
// returns the first match.
func FindSettingsFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{".", ".config", "configs"}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{".actup.yaml", ".actup.yml", "actup.yaml", "actup.yml"}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("settings file not found in default locations")
}

// Excluded reports whether a repository is excluded from remediation.
func (s *Settings) Excluded(repoFullName string) bool {
	for _, excluded := range s.ExcludeRepos {
		if strings.EqualFold(excluded, repoFullName) {
			return true
		}
	}
	return false
}

func (s *Settings) applyDefaults() {
	if s.DatabaseFile == "" {
		s.DatabaseFile = defaultDatabaseFile
	}
	if s.TrackerFile == "" {
		s.TrackerFile = defaultTrackerFile
	}
	if s.Workers <= 0 {
		s.Workers = defaultWorkers
	}
	if s.PinTarget == "" {
		s.PinTarget = PinTargetCurrent
	}
	if s.PopularReposLimit <= 0 {
		s.PopularReposLimit = defaultReposLimit
	}
}

func (s *Settings) validate() error {
	if s.Token == "" {
		return errors.New("token is required (set inline, via ${ENV_VAR}, or as file path)")
	}
	if s.PinTarget != PinTargetCurrent && s.PinTarget != PinTargetLatest {
		return fmt.Errorf("pin_target must be %q or %q, got %q",
			PinTargetCurrent, PinTargetLatest, s.PinTarget)
	}
	return nil
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		return strings.TrimSpace(string(data))
	}

	return resolved
}
