package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid ServerConfig for testing.
func minimalValidConfig() *ServerConfig {
	cfg := &ServerConfig{
		Mode: "prod",
		Port: 8080,
		Notary: NotaryConfig{
			Addr:       "127.0.0.1:7047",
			CertDomain: "tlsnotaryserver.io",
		},
		Publisher: PublisherConfig{
			SocketDir: "/tmp/test_sockets",
			PubName:   "test_pub",
			ReqName:   "test_req",
			ProofPath: "./proof.json",
		},
	}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_MissingMode(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Mode = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing mode, got nil")
	}
	if !strings.Contains(err.Error(), "Mode") {
		t.Errorf("error = %q, want to contain 'Mode'", err.Error())
	}
}

func TestValidate_InvalidMode(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Mode = "staging"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid mode, got nil")
	}
	if !strings.Contains(err.Error(), "one of") {
		t.Errorf("error = %q, want to mention allowed values", err.Error())
	}
}

func TestValidate_MissingNotaryAddr(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Notary.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing notary addr, got nil")
	}
}

func TestValidate_MalformedNotaryAddr(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Notary.Addr = "not-a-host-port"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for malformed notary addr, got nil")
	}
}

func TestValidate_MissingPublisherFields(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Publisher.SocketDir = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing socket dir, got nil")
	}
}

func TestValidate_HeaderPolicyRequiresCondition(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.HeaderPolicy = []HeaderRule{{Name: "drop-foo"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for header rule with no condition, got nil")
	}
}

func TestValidate_LogLevelOneOf(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for invalid log level, got nil")
	}
}
