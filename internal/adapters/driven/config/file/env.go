package file

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// Environment variables holding secrets.
const (
	EnvGitHubToken          = "GITHUB_TOKEN"
	EnvAppID                = "GITHUB_APP_ID"
	EnvAppPrivateKey        = "GITHUB_APP_PRIVATE_KEY"
	EnvAppInstallationID    = "GITHUB_APP_INSTALLATION_ID"
	EnvTypesenseAPIKey      = "TYPESENSE_API_KEY"
	pemPrefix               = "-----BEGIN"
	defaultEnvFile          = ".env"
	privateKeyPathMaxLength = 4096
)

// Secrets are the credentials read from the environment.
type Secrets struct {
	GitHubToken string

	AppID             string
	AppPrivateKey     string
	AppInstallationID string

	TypesenseAPIKey string
}

// LoadEnvFiles seeds the environment from dotenv files. Variables already
// set win over the files. Missing files are skipped; without arguments
// ./.env is tried.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{defaultEnvFile}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// SecretsFromEnv reads the secret variables.
func SecretsFromEnv() Secrets {
	return Secrets{
		GitHubToken:       strings.TrimSpace(os.Getenv(EnvGitHubToken)),
		AppID:             strings.TrimSpace(os.Getenv(EnvAppID)),
		AppPrivateKey:     os.Getenv(EnvAppPrivateKey),
		AppInstallationID: strings.TrimSpace(os.Getenv(EnvAppInstallationID)),
		TypesenseAPIKey:   strings.TrimSpace(os.Getenv(EnvTypesenseAPIKey)),
	}
}

// Auth resolves the source credentials. A token wins when both a token and
// app credentials are present.
func (c *Config) Auth() (domain.Auth, error) {
	s := c.Secrets
	if s.GitHubToken != "" {
		return domain.TokenAuth{Token: s.GitHubToken}, nil
	}
	if s.AppID == "" && s.AppPrivateKey == "" && s.AppInstallationID == "" {
		return nil, fmt.Errorf("%w: set %s or %s, %s and %s",
			domain.ErrAuthRequired, EnvGitHubToken, EnvAppID, EnvAppPrivateKey, EnvAppInstallationID)
	}

	appID, err := strconv.ParseInt(s.AppID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAuthRequired, EnvAppID, err)
	}
	installationID, err := strconv.ParseInt(s.AppInstallationID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAuthRequired, EnvAppInstallationID, err)
	}
	key, err := readPrivateKey(s.AppPrivateKey)
	if err != nil {
		return nil, err
	}

	auth := domain.AppAuth{AppID: appID, PrivateKey: key, InstallationID: installationID}
	if err := auth.Validate(); err != nil {
		return nil, err
	}
	return auth, nil
}

// readPrivateKey accepts either the PEM text itself or a path to it.
// Escaped newlines from single-line env files are expanded.
func readPrivateKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: %s is not set", domain.ErrAuthRequired, EnvAppPrivateKey)
	}
	if strings.HasPrefix(value, pemPrefix) {
		return []byte(strings.ReplaceAll(value, `\n`, "\n")), nil
	}
	if len(value) > privateKeyPathMaxLength {
		return nil, fmt.Errorf("%w: %s is neither PEM nor a path", domain.ErrAuthRequired, EnvAppPrivateKey)
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrAuthRequired, EnvAppPrivateKey, err)
	}
	return data, nil
}
