package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/registry"
	"github.com/stanzabuild/stanza/pkg/resolve"
	"github.com/stanzabuild/stanza/pkg/vcs"
)

// Viper keys. Each is also reachable as STANZA_<KEY> with dots replaced by
// underscores (STANZA_REGISTRY_URL, STANZA_LOG_LEVEL, ...) and as an entry in
// $STANZA_HOME/config.yaml.
const (
	keyHome          = "home"
	keyRegistryURL   = "registry.url"
	keyRegistryToken = "registry.token"
	keyGitHubAPIURL  = "github.api_url"
	keyGitHubToken   = "github.token"
	keyLogLevel      = "log.level"
	keyLogFormat     = "log.format"
	keyMaxWorkers    = "resolver.workers"
	keyHTTPTimeout   = "http.timeout"
	keyIndexEnabled  = "index.enabled"
	keyIndexTTL      = "index.ttl"
	keyToolchain     = "toolchain.command"
	keyOTelEnabled   = "otel.enabled"
	keyOTelEndpoint  = "otel.endpoint"
	keyOTelInsecure  = "otel.insecure"
)

// ConfigFileName is the tool settings file inside the stanza home directory.
// Distinct from plugins.yaml, which configures plugins, not the tool.
const ConfigFileName = "config.yaml"

// Settings are the tool-level knobs, merged from flags, STANZA_* environment
// variables, and $STANZA_HOME/config.yaml, in that precedence order.
type Settings struct {
	Home string

	RegistryURL   string
	RegistryToken string
	GitHubAPIURL  string
	GitHubToken   string

	LogLevel  string
	LogFormat string

	MaxWorkers  int
	HTTPTimeout time.Duration

	IndexEnabled bool
	IndexTTL     time.Duration

	Toolchain string

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
}

// defaultHome resolves the stanza home directory the same way the plugin
// loader does: $STANZA_HOME, else ~/.stanza.
func defaultHome() string {
	if home := os.Getenv("STANZA_HOME"); home != "" {
		return home
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}
	return filepath.Join(homeDir, ".stanza")
}

// configureViper installs defaults, environment mapping, and the settings
// file. configFile overrides the default $STANZA_HOME/config.yaml location.
// A missing settings file is not an error.
func configureViper(v *viper.Viper, configFile string) error {
	v.SetDefault(keyHome, defaultHome())
	v.SetDefault(keyRegistryURL, registry.DefaultBaseURL)
	v.SetDefault(keyRegistryToken, "")
	v.SetDefault(keyGitHubAPIURL, vcs.DefaultAPIBaseURL)
	v.SetDefault(keyGitHubToken, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyMaxWorkers, resolve.DefaultMaxWorkers)
	v.SetDefault(keyHTTPTimeout, 30*time.Second)
	v.SetDefault(keyIndexEnabled, true)
	v.SetDefault(keyIndexTTL, 24*time.Hour)
	v.SetDefault(keyToolchain, "cabal")
	v.SetDefault(keyOTelEnabled, false)
	v.SetDefault(keyOTelEndpoint, "localhost:4317")
	v.SetDefault(keyOTelInsecure, true)

	v.SetEnvPrefix("STANZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(keyHome))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading settings: %w", err)
	}
	return nil
}

// settingsFromViper materializes Settings from the merged sources.
func settingsFromViper(v *viper.Viper) *Settings {
	return &Settings{
		Home:          v.GetString(keyHome),
		RegistryURL:   v.GetString(keyRegistryURL),
		RegistryToken: v.GetString(keyRegistryToken),
		GitHubAPIURL:  v.GetString(keyGitHubAPIURL),
		GitHubToken:   v.GetString(keyGitHubToken),
		LogLevel:      v.GetString(keyLogLevel),
		LogFormat:     v.GetString(keyLogFormat),
		MaxWorkers:    v.GetInt(keyMaxWorkers),
		HTTPTimeout:   v.GetDuration(keyHTTPTimeout),
		IndexEnabled:  v.GetBool(keyIndexEnabled),
		IndexTTL:      v.GetDuration(keyIndexTTL),
		Toolchain:     v.GetString(keyToolchain),
		OTelEnabled:   v.GetBool(keyOTelEnabled),
		OTelEndpoint:  v.GetString(keyOTelEndpoint),
		OTelInsecure:  v.GetBool(keyOTelInsecure),
	}
}

// UserConfigFile is the plugin configuration file under Home.
func (s *Settings) UserConfigFile() string {
	return filepath.Join(s.Home, plugins.UserConfigName)
}

// IndexFile is the sqlite version index under Home.
func (s *Settings) IndexFile() string {
	return filepath.Join(s.Home, "index.db")
}

// SettingsFile is the tool settings file under Home.
func (s *Settings) SettingsFile() string {
	return filepath.Join(s.Home, ConfigFileName)
}
