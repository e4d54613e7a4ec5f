package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// PRINTOPS_SNAPSHOT_BACKING_MYSQL_HOST
const EnvPrefix = "PRINTOPS_SNAPSHOT"

// DefaultFileName is looked up in the working directory and $HOME
const DefaultFileName = ".printops-snapshot"

// Load reads the configuration from path, or from the default locations when
// path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith loads through an existing viper instance so command-line flags
// bound to it take precedence
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	setupViper(v, path)
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setupViper configures file lookup and environment overrides
func setupViper(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// registerDefaults registers every key so environment overrides apply even
// when the file omits the key
func registerDefaults(v *viper.Viper) {
	for key, value := range flatten("", toMap(Default())) {
		v.SetDefault(key, value)
	}
	for _, key := range optionalKeys {
		v.SetDefault(key, "")
	}
}

// optionalKeys are omitted from the template when empty but still accept
// environment overrides
var optionalKeys = []string{
	"logging.file",
	"archive.storage.s3.endpoint",
	"archive.encryption.passphrase",
}

// Template renders a sample configuration file with every default filled in
func Template() (string, error) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return "# printops-snapshot configuration\n" +
		"# Every key can be overridden with " + EnvPrefix + "_<SECTION>_<KEY>, e.g. " + EnvPrefix + "_BACKING_MYSQL_HOST\n" +
		string(data), nil
}

// WriteTemplate writes the sample configuration to path, refusing to
// overwrite an existing file
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists", path)
	}
	content, err := Template()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// EnvironmentVariables lists every recognised override, sorted
func EnvironmentVariables() []string {
	keys := flatten("", toMap(Default()))
	for _, key := range optionalKeys {
		keys[key] = ""
	}
	vars := make([]string, 0, len(keys))
	for key := range keys {
		vars = append(vars, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	sort.Strings(vars)
	return vars
}

// toMap round-trips c through YAML so keys follow the yaml tags, which match
// the mapstructure tags
func toMap(c *Config) map[string]any {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
