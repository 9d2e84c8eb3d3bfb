// Package config provides configuration loading for tlsn-prover-gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches standard locations for
// tlsn-prover.yaml/.yml, mirroring the teacher's InitViper search order.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns ConfigFileNotFoundError,
		// handled gracefully by LoadConfigRaw.
		viper.SetConfigName("tlsn-prover")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TLSN_PROVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a tlsn-prover config file
// with an explicit YAML extension, the same way the teacher avoids
// matching its own binary name with no extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".tlsn-prover"),
		"/etc/tlsn-prover",
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "tlsn-prover"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds config keys so TLSN_PROVER_NOTARY_ADDR and
// friends override nested values, the same role as the teacher's
// bindNestedEnvKeys.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("mode")
	_ = viper.BindEnv("port")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("notary.addr")
	_ = viper.BindEnv("notary.cert_domain")
	_ = viper.BindEnv("notary.ca_file")
	_ = viper.BindEnv("notary.max_transcript_size")
	_ = viper.BindEnv("publisher.socket_dir")
	_ = viper.BindEnv("publisher.pub_name")
	_ = viper.BindEnv("publisher.req_name")
	_ = viper.BindEnv("publisher.proof_path")
	_ = viper.BindEnv("attempt_log.enabled")
	_ = viper.BindEnv("attempt_log.db_path")
	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.service_name")
}

// ConfigFileUsed returns the path of the config file viper loaded, or ""
// if none was found — not fatal, since flags and env can fully configure
// the gateway on their own.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// LoadConfigRaw reads the configuration without validating it, so the
// caller can layer CLI flag overrides (mode, port, ...) before Validate
// runs. Mirrors the teacher's LoadConfigRaw/runStart split.
func LoadConfigRaw() (*ServerConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}
