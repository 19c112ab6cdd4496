package core

import (
	"fmt"
	"strings"
	"time"
)

type AdmissionConfig struct {
	TTLMs         int64 `koanf:"ttl_ms" mapstructure:"ttl_ms"`
	DedupWindowMs int64 `koanf:"dedup_window_ms" mapstructure:"dedup_window_ms"`
	FutureSkewMs  int64 `koanf:"future_skew_ms" mapstructure:"future_skew_ms"`
}

type GuardConfig struct {
	StaleAfterMs int64 `koanf:"stale_after_ms" mapstructure:"stale_after_ms"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Admission   AdmissionConfig `koanf:"admission" mapstructure:"admission"`
	Guard       GuardConfig     `koanf:"guard" mapstructure:"guard"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "callbridge",
		Admission: AdmissionConfig{
			TTLMs:         DefaultAdmissionTTL.Milliseconds(),
			DedupWindowMs: DefaultDedupWindow.Milliseconds(),
			FutureSkewMs:  DefaultFutureSkew.Milliseconds(),
		},
		Guard: GuardConfig{
			StaleAfterMs: DefaultGuardStaleAfter.Milliseconds(),
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Admission.TTLMs < 0 {
		return fmt.Errorf("core: admission.ttl_ms must not be negative")
	}
	if c.Admission.DedupWindowMs < 0 {
		return fmt.Errorf("core: admission.dedup_window_ms must not be negative")
	}
	if c.Admission.FutureSkewMs < 0 {
		return fmt.Errorf("core: admission.future_skew_ms must not be negative")
	}
	if c.Guard.StaleAfterMs < 0 {
		return fmt.Errorf("core: guard.stale_after_ms must not be negative")
	}
	return nil
}

// Rules maps the scalar config onto admission engine windows, substituting
// defaults for unset values.
func (c Config) Rules() AdmissionRules {
	rules := AdmissionRules{
		TTL:             time.Duration(c.Admission.TTLMs) * time.Millisecond,
		DedupWindow:     time.Duration(c.Admission.DedupWindowMs) * time.Millisecond,
		FutureSkew:      time.Duration(c.Admission.FutureSkewMs) * time.Millisecond,
		GuardStaleAfter: time.Duration(c.Guard.StaleAfterMs) * time.Millisecond,
	}
	return rules.normalized()
}
