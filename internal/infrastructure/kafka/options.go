// Package kafka backs the demo's event log with a Kafka cluster through franz-go.
package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/aws"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

// clientOptions translates cluster connectivity settings into franz-go options
// shared by the producer, the admin and every consumer.
func clientOptions(cfg config.ClusterConfig) ([]kgo.Opt, error) {
	opts := []kgo.Opt{kgo.WithLogger(newLogger())}

	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if len(cfg.Brokers) > 0 {
		opts = append(opts, kgo.SeedBrokers(cfg.Brokers...))
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsCfg, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}
	if cfg.SASL != nil && cfg.SASL.Mechanism != "" {
		mech, err := buildSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.SASL(mech))
	}
	if cfg.AWS != nil && cfg.AWS.IAM {
		if mech := buildAWSMechanism(cfg.AWS); mech != nil {
			opts = append(opts, kgo.SASL(mech))
		}
	}
	return opts, nil
}

func buildTLSConfig(t *config.TLSConfig) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: t.InsecureSkipVerify}

	if t.CAFile != "" {
		b, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(b) {
			return nil, fmt.Errorf("no certificates found in %s", t.CAFile)
		}
		cfg.RootCAs = pool
	}

	if t.CertFile != "" && t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// envOr returns the value of the named env var, or fallback when unset.
func envOr(name, fallback string) string {
	if name != "" {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return fallback
}

func buildSASLMechanism(s *config.SASLConfig) (sasl.Mechanism, error) {
	user := envOr(s.UsernameEnv, s.Username)
	pass := envOr(s.PasswordEnv, s.Password)

	switch strings.ToUpper(strings.ReplaceAll(s.Mechanism, "_", "-")) {
	case "PLAIN":
		return plain.Auth{User: user, Pass: pass}.AsMechanism(), nil
	case "SCRAM-SHA-256", "SCRAM-SHA256":
		return scram.Auth{User: user, Pass: pass}.AsSha256Mechanism(), nil
	case "SCRAM-SHA-512", "SCRAM-SHA512":
		return scram.Auth{User: user, Pass: pass}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", s.Mechanism)
	}
}

// buildAWSMechanism returns nil when no static credentials are available.
func buildAWSMechanism(a *config.AWSConfig) sasl.Mechanism {
	var accessEnv, secretEnv, sessionEnv string
	if a != nil {
		accessEnv, secretEnv, sessionEnv = a.AccessKeyEnv, a.SecretKeyEnv, a.SessionTokenEnv
	}
	access := envOr(accessEnv, os.Getenv("AWS_ACCESS_KEY_ID"))
	secret := envOr(secretEnv, os.Getenv("AWS_SECRET_ACCESS_KEY"))
	session := envOr(sessionEnv, os.Getenv("AWS_SESSION_TOKEN"))
	if access == "" || secret == "" {
		return nil
	}
	return aws.Auth{
		AccessKey:    access,
		SecretKey:    secret,
		SessionToken: session,
	}.AsManagedStreamingIAMMechanism()
}
