// Package config provides configuration types for the tlsn-prover-gateway.
//
// Configuration is file- and flag-driven: a YAML file layered with CLI
// flags and TLSN_PROVER_-prefixed environment variables via viper, the
// same layering the teacher's OSS config schema uses.
package config

import (
	"time"
)

// ServerConfig is the top-level, read-only configuration for the gateway.
// It is constructed once at startup by LoadConfigRaw and never mutated
// afterward; Clone returns an independent copy for handlers that want to
// read it without holding a reference to the process-wide instance.
type ServerConfig struct {
	// Mode selects environment defaults: "dev" or "prod".
	// dev fills in working defaults (localhost notary, throwaway socket
	// directory); prod requires every field that matters for a real
	// deployment to be set explicitly. Validation is the same in both modes.
	Mode string `yaml:"mode" mapstructure:"mode" validate:"required,oneof=dev prod"`

	// Port is the HTTP listener port for the /proxy ingress route.
	Port uint16 `yaml:"port" mapstructure:"port" validate:"required"`

	// LogLevel sets the minimum slog level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	Notary      NotaryConfig      `yaml:"notary" mapstructure:"notary"`
	Publisher   PublisherConfig   `yaml:"publisher" mapstructure:"publisher"`
	Timeouts    TimeoutConfig     `yaml:"timeouts" mapstructure:"timeouts"`
	HeaderPolicy []HeaderRule     `yaml:"header_policy" mapstructure:"header_policy" validate:"omitempty,dive"`
	AttemptLog  AttemptLogConfig  `yaml:"attempt_log" mapstructure:"attempt_log"`
	Tracing     TracingConfig     `yaml:"tracing" mapstructure:"tracing"`

	// DevMode mirrors Mode == "dev"; kept as a separate bool field (rather
	// than re-deriving it everywhere) the way the teacher's OSSConfig.DevMode
	// does, so CLI flags can flip it independently of the Mode string.
	DevMode bool `yaml:"-" mapstructure:"-"`
}

// NotaryConfig configures the outbound notary session client (C3).
type NotaryConfig struct {
	// Addr is "host:port" of the notary server. Dev mode defaults it to
	// 127.0.0.1:7047.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
	// CertDomain is the name verified against the notary's TLS certificate.
	CertDomain string `yaml:"cert_domain" mapstructure:"cert_domain" validate:"required"`
	// CAFile optionally overrides the embedded notary CA certificate.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file" validate:"omitempty,file"`
	// MaxTranscriptSize is sent as clientType session parameter maxTranscriptSize.
	MaxTranscriptSize int `yaml:"max_transcript_size" mapstructure:"max_transcript_size" validate:"omitempty,min=1"`
}

// PublisherConfig configures the proof publisher's IPC bus (C6).
type PublisherConfig struct {
	// SocketDir is the directory holding the PUB and ROUTER ipc sockets.
	SocketDir string `yaml:"socket_dir" mapstructure:"socket_dir" validate:"required"`
	// PubName / ReqName are the socket file basenames within SocketDir.
	PubName string `yaml:"pub_name" mapstructure:"pub_name" validate:"required"`
	ReqName string `yaml:"req_name" mapstructure:"req_name" validate:"required"`
	// ProofPath is where the latest proof is dumped as pretty-printed JSON.
	ProofPath string `yaml:"proof_path" mapstructure:"proof_path" validate:"required"`
}

// TimeoutConfig carries the wall-clock deadlines §5 says an implementation
// should add at each suspension point the original design left open-ended.
type TimeoutConfig struct {
	NotaryDial      time.Duration `yaml:"-" mapstructure:"-"`
	UpstreamDial    time.Duration `yaml:"-" mapstructure:"-"`
	UpstreamResponse time.Duration `yaml:"-" mapstructure:"-"`
	ProverStage     time.Duration `yaml:"-" mapstructure:"-"`

	NotaryDialStr      string `yaml:"notary_dial" mapstructure:"notary_dial" validate:"omitempty"`
	UpstreamDialStr     string `yaml:"upstream_dial" mapstructure:"upstream_dial" validate:"omitempty"`
	UpstreamResponseStr string `yaml:"upstream_response" mapstructure:"upstream_response" validate:"omitempty"`
	ProverStageStr      string `yaml:"prover_stage" mapstructure:"prover_stage" validate:"omitempty"`
}

// HeaderRule is an additive CEL-evaluated header admission rule, layered on
// top of the spec's fixed blocked-header set (never relaxes it — only adds
// further restrictions a deployment wants).
type HeaderRule struct {
	// Name is a human-readable identifier for logs and error messages.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// Condition is a CEL expression over `header.name` and `header.value`;
	// when it evaluates true the header is dropped before shaping the
	// upstream request.
	Condition string `yaml:"condition" mapstructure:"condition" validate:"required"`
}

// AttemptLogConfig configures the best-effort sqlite-backed attempt ledger.
type AttemptLogConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path" validate:"omitempty"`
}

// TracingConfig configures the otel stdout exporters used for the span the
// notarization service starts per Notarize call. There is no collector in this gateway — proofs already
// carry the notary's attestation; tracing here is purely operational.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// Clone returns an independent copy: a value copy of ServerConfig with its
// one reference field, the HeaderPolicy slice, copied into a new backing
// array — the same "cheap clone" guarantee the teacher's config affords
// handlers.
func (c ServerConfig) Clone() ServerConfig {
	clone := c
	if len(c.HeaderPolicy) > 0 {
		clone.HeaderPolicy = append([]HeaderRule(nil), c.HeaderPolicy...)
	}
	return clone
}

// SetDevDefaults applies permissive defaults for development mode, the way
// the teacher's OSSConfig.SetDevDefaults fills in a working dev identity.
// Applied before validation so required fields are satisfied.
func (c *ServerConfig) SetDevDefaults() {
	if c.Mode != "dev" {
		return
	}
	c.DevMode = true

	if c.Notary.Addr == "" {
		c.Notary.Addr = "127.0.0.1:7047"
	}
	if c.Notary.CertDomain == "" {
		c.Notary.CertDomain = "tlsnotaryserver.io"
	}
	if c.Publisher.SocketDir == "" {
		c.Publisher.SocketDir = "/tmp/test_sockets"
	}
	if c.Publisher.PubName == "" {
		c.Publisher.PubName = "test_pub"
	}
	if c.Publisher.ReqName == "" {
		c.Publisher.ReqName = "test_req"
	}
	if c.Publisher.ProofPath == "" {
		c.Publisher.ProofPath = "./proof.json"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

// SetDefaults applies sensible defaults common to both modes.
func (c *ServerConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Notary.MaxTranscriptSize == 0 {
		c.Notary.MaxTranscriptSize = 16384
	}
	if c.Timeouts.NotaryDialStr == "" {
		c.Timeouts.NotaryDialStr = "10s"
	}
	if c.Timeouts.UpstreamDialStr == "" {
		c.Timeouts.UpstreamDialStr = "10s"
	}
	if c.Timeouts.UpstreamResponseStr == "" {
		c.Timeouts.UpstreamResponseStr = "30s"
	}
	if c.Timeouts.ProverStageStr == "" {
		c.Timeouts.ProverStageStr = "30s"
	}
	if c.AttemptLog.DBPath == "" {
		c.AttemptLog.DBPath = "./tlsn-prover-attempts.db"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "tlsn-prover-gateway"
	}
	c.resolveTimeouts()
}

// resolveTimeouts parses the string duration fields into the
// time.Duration fields actually read by the pipeline (those carry no
// yaml/mapstructure tags, so they are never loaded directly). Kept in the
// config package (not each consumer) so durations are settled at load
// time; an empty or unparsable string falls back to the field's default.
func (c *ServerConfig) resolveTimeouts() {
	parse := func(s string, fallback time.Duration) time.Duration {
		if s == "" {
			return fallback
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fallback
		}
		return d
	}
	c.Timeouts.NotaryDial = parse(c.Timeouts.NotaryDialStr, 10*time.Second)
	c.Timeouts.UpstreamDial = parse(c.Timeouts.UpstreamDialStr, 10*time.Second)
	c.Timeouts.UpstreamResponse = parse(c.Timeouts.UpstreamResponseStr, 30*time.Second)
	c.Timeouts.ProverStage = parse(c.Timeouts.ProverStageStr, 30*time.Second)
}
