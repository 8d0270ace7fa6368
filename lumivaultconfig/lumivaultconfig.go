package lumivaultconfig

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/lumivault/lumivault/internal/cryptox"
)

// RemoteConfig defines how to reach the Lumivault API.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// VaultConfig defines the client-side encryption keys. Either a literal
// master key or a passphrase/salt pair must be set.
type VaultConfig struct {
	// MasterKey is the base64 encoded master key.
	MasterKey string `mapstructure:"master_key"`

	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

// UploadConfig tunes the upload pipeline.
type UploadConfig struct {
	Workers  int    `mapstructure:"workers"`
	SpoolDir string `mapstructure:"spool_dir"`
}

// LumivaultConfig defines the configuration for Lumivault.
type LumivaultConfig struct {
	Remote RemoteConfig `mapstructure:"remote"`
	Vault  VaultConfig  `mapstructure:"vault"`
	Upload UploadConfig `mapstructure:"upload"`

	StateDir string `mapstructure:"state_dir"`

	path string `mapstructure:"-"`
}

func (c *RemoteConfig) Validate() error {
	// Check that at least a base set of fields have values.
	if c.Token == "" {
		return fmt.Errorf("missing remote token")
	}
	// Allow empty base_url, the client falls back to the public endpoint.
	return nil
}

func (c *VaultConfig) Validate() error {
	if c.MasterKey == "" && (c.Passphrase == "" || c.Salt == "") {
		return fmt.Errorf("missing vault master_key or passphrase and salt")
	}
	return nil
}

// MasterKeyBytes returns the decoded master key, deriving it from the
// passphrase when no literal key is configured.
func (c *VaultConfig) MasterKeyBytes() ([]byte, error) {
	if c.MasterKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("invalid vault master_key: %w", err)
		}
		return key, nil
	}
	return cryptox.DeriveKey([]byte(c.Passphrase), []byte(c.Salt)), nil
}

func (c *LumivaultConfig) Validate() error {
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("invalid remote config (%s): %w", c.path, err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("invalid vault config (%s): %w", c.path, err)
	}
	if c.Upload.Workers < 0 {
		return fmt.Errorf("upload workers must not be negative (%s)", c.path)
	}
	return nil
}

// ConfigPath returns the path the configuration was loaded from.
func (c *LumivaultConfig) ConfigPath() string {
	return c.path
}

// StateDirPath returns the directory holding local client state such as
// the pending-upload record.
func (c *LumivaultConfig) StateDirPath() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user config dir: %w", err)
	}
	return filepath.Join(dir, "lumivault", "state"), nil
}

// DefaultConfigPath returns the default path for the Lumivault config file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user config dir: %w", err)
	}
	return filepath.Join(dir, "lumivault", "config.toml"), nil
}

// getConfigPath determines where to read the config file from.
func getConfigPath(configPathFlag string) (string, error) {
	// Prefer user-specific config file path if specified.
	if configPathFlag != "" {
		return configPathFlag, nil
	}

	// Fall back to user config dir.
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lumivault", "config.toml"), nil
	}
	return "", fmt.Errorf("unable to determine config file path")
}

// LoadConfig reads the config file.
func LoadConfig(configPathFlag string) (LumivaultConfig, error) {
	path, err := getConfigPath(configPathFlag)
	if err != nil {
		return LumivaultConfig{}, err
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")

	// Allow users to override config values with environment variables.
	// In particular, may be desired for the API token.
	viper.SetEnvPrefix("LUMIVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return LumivaultConfig{}, fmt.Errorf("error reading (%s): %w", path, err)
	}
	config := LumivaultConfig{path: path}
	if err := viper.Unmarshal(&config); err != nil {
		return LumivaultConfig{}, fmt.Errorf("error unmarshaling (%s): %w", path, err)
	}
	return config, nil
}
