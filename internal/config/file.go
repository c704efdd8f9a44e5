package config

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Log drivers.
const (
	DriverKafka  = "kafka"
	DriverMemory = "memory"
)

// ClusterConfig holds cluster connectivity and security configuration.
type ClusterConfig struct {
	Brokers  []string    `yaml:"brokers" json:"brokers"`
	ClientID string      `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	TLS      *TLSConfig  `yaml:"tls,omitempty" json:"tls,omitempty"`
	SASL     *SASLConfig `yaml:"sasl,omitempty" json:"sasl,omitempty"`
	AWS      *AWSConfig  `yaml:"aws,omitempty" json:"aws,omitempty"`
}

// TLSConfig holds TLS related fields.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	CAFile             string `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	CertFile           string `yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile            string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty"`
}

// SASLConfig holds SASL configuration. Credentials may be provided inline or via env var names.
type SASLConfig struct {
	Mechanism   string `yaml:"mechanism,omitempty" json:"mechanism,omitempty"` // e.g. PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	UsernameEnv string `yaml:"username_env,omitempty" json:"username_env,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty" json:"password_env,omitempty"`
}

// AWSConfig holds AWS IAM SASL config. Prefer the standard AWS credential provider (env, shared creds, role).
type AWSConfig struct {
	IAM             bool   `yaml:"iam,omitempty" json:"iam,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	AccessKeyEnv    string `yaml:"access_key_env,omitempty" json:"access_key_env,omitempty"`
	SecretKeyEnv    string `yaml:"secret_key_env,omitempty" json:"secret_key_env,omitempty"`
	SessionTokenEnv string `yaml:"session_token_env,omitempty" json:"session_token_env,omitempty"`
}

// DemoConfig describes the simulated workload.
type DemoConfig struct {
	Topic             string `yaml:"topic" json:"topic"`
	GroupID           string `yaml:"group_id" json:"group_id"`
	Partitions        int    `yaml:"partitions" json:"partitions"`
	ReplicationFactor int16  `yaml:"replication_factor" json:"replication_factor"`
	Consumers         int    `yaml:"consumers" json:"consumers"`
	IntervalMs        int    `yaml:"interval_ms" json:"interval_ms"`
	PartitionWeights  []int  `yaml:"partition_weights,omitempty" json:"partition_weights,omitempty"`
	FromBeginning     bool   `yaml:"from_beginning,omitempty" json:"from_beginning,omitempty"`
	AutoStart         bool   `yaml:"auto_start,omitempty" json:"auto_start,omitempty"`
}

// LogConfig selects the log backend and logging verbosity.
type LogConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
}

// HTTPConfig configures the operator HTTP surface.
type HTTPConfig struct {
	Port string `yaml:"port" json:"port"`
}

// FileConfig is the on-disk configuration.
type FileConfig struct {
	Cluster ClusterConfig `yaml:"cluster" json:"cluster"`
	Demo    DemoConfig    `yaml:"demo" json:"demo"`
	Log     LogConfig     `yaml:"log" json:"log"`
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
}

// Default returns the configuration used when no file or env value overrides it.
func Default() FileConfig {
	return FileConfig{
		Cluster: ClusterConfig{Brokers: []string{"localhost:9092"}, ClientID: "demo-kafka"},
		Demo: DemoConfig{
			Topic:             "demo-events",
			GroupID:           "demo-shared-group",
			Partitions:        3,
			ReplicationFactor: 1,
			Consumers:         3,
			IntervalMs:        2000,
			PartitionWeights:  []int{1, 1, 1},
		},
		Log:  LogConfig{Driver: DriverKafka},
		HTTP: HTTPConfig{Port: "3000"},
	}
}

// ReadConfig reads path over the defaults. A missing file yields the defaults.
func ReadConfig(path string) (FileConfig, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overrides file values with KAFKA_BROKERS, DEMO_PRODUCER_INTERVAL_MS,
// PORT, DEMO_LOG_DRIVER and DEMO_LOG_LEVEL when set.
func (c *FileConfig) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		if len(brokers) > 0 {
			c.Cluster.Brokers = brokers
		}
	}
	if v := os.Getenv("DEMO_PRODUCER_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Demo.IntervalMs = ms
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Port = v
	}
	if v := os.Getenv("DEMO_LOG_DRIVER"); v != "" {
		c.Log.Driver = v
	}
	if v := os.Getenv("DEMO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.normalize()
}

func (c *FileConfig) normalize() {
	d := Default()
	if c.Demo.Topic == "" {
		c.Demo.Topic = d.Demo.Topic
	}
	if c.Demo.GroupID == "" {
		c.Demo.GroupID = d.Demo.GroupID
	}
	if c.Demo.Partitions <= 0 {
		c.Demo.Partitions = d.Demo.Partitions
	}
	if c.Demo.ReplicationFactor <= 0 {
		c.Demo.ReplicationFactor = d.Demo.ReplicationFactor
	}
	if c.Demo.Consumers <= 0 {
		c.Demo.Consumers = d.Demo.Consumers
	}
	if c.Demo.IntervalMs <= 0 {
		c.Demo.IntervalMs = d.Demo.IntervalMs
	}
	c.Log.Driver = strings.ToLower(strings.TrimSpace(c.Log.Driver))
	if c.Log.Driver != DriverMemory {
		c.Log.Driver = DriverKafka
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = d.HTTP.Port
	}
}

// Interval returns the configured production interval.
func (d DemoConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMs) * time.Millisecond
}

// GetAuthType returns a human-readable authentication type based on the cluster config
func (c *ClusterConfig) GetAuthType() string {
	if c.AWS != nil && c.AWS.IAM {
		return "AWS IAM"
	}

	if c.SASL != nil && c.SASL.Mechanism != "" {
		mechanism := c.SASL.Mechanism
		if c.TLS != nil && c.TLS.Enabled {
			return "SASL/" + mechanism + " + TLS"
		}
		return "SASL/" + mechanism
	}

	// mTLS when client certificates are configured
	if c.TLS != nil && c.TLS.Enabled {
		if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			return "mTLS"
		}
		return "TLS"
	}

	return "PLAINTEXT"
}

// CertificateInfo holds certificate validity information
type CertificateInfo struct {
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	DaysToExpiry int       `json:"days_to_expiry"`
	Status       string    `json:"status"` // "valid", "warning", "critical", "expired"
}

// GetCertificateInfo reads and parses the client certificate to extract validity information
func (c *ClusterConfig) GetCertificateInfo() (*CertificateInfo, error) {
	if c.TLS == nil || !c.TLS.Enabled || c.TLS.CertFile == "" {
		return nil, nil
	}

	certPEM, err := os.ReadFile(c.TLS.CertFile)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, nil // Not a valid PEM format
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	daysToExpiry := int(time.Until(cert.NotAfter).Hours() / 24)

	status := "valid"
	if now.After(cert.NotAfter) {
		status = "expired"
	} else if daysToExpiry <= 7 {
		status = "critical"
	} else if daysToExpiry <= 30 {
		status = "warning"
	}

	return &CertificateInfo{
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		DaysToExpiry: daysToExpiry,
		Status:       status,
	}, nil
}
