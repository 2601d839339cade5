// Package config loads the frc2g YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"frc2g/internal/model"
	"frc2g/internal/utils"

	"gopkg.in/yaml.v3"
)

const (
	TypePfSense  = "pfsense"
	TypeOPNsense = "opnsense"

	DefaultPath = "frc2g.yaml"
)

type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	PfSense  PfSenseConfig  `yaml:"pfsense"`
	OPNsense OPNsenseConfig `yaml:"opnsense"`
	HTTP     HTTPConfig     `yaml:"http"`
	Labels   LabelsConfig   `yaml:"labels"`
	Output   OutputConfig   `yaml:"output"`
	Graph    GraphConfig    `yaml:"graph"`
	State    StateConfig    `yaml:"state"`
	Evidence EvidenceConfig `yaml:"evidence"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type GatewayConfig struct {
	Type string `yaml:"type"`
	// Name is the display name used in GATEWAY labels. Defaults to the firewall host.
	Name string `yaml:"name"`
	// Interfaces restricts per-interface rule fetching. Empty means auto-detect.
	Interfaces         []string `yaml:"interfaces"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

type PfSenseConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type OPNsenseConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
}

type HTTPConfig struct {
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
	RulesTimeout  time.Duration `yaml:"rules_timeout"`
}

type LabelsConfig struct {
	Any      string   `yaml:"any"`
	Unknown  string   `yaml:"unknown"`
	Disabled string   `yaml:"disabled"`
	Floating []string `yaml:"floating"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	WorkCSV    string `yaml:"work_csv"`
	ExportCSV  bool   `yaml:"export_csv"`
	KeepImages bool   `yaml:"keep_images"`
}

type GraphConfig struct {
	DotBinary        string `yaml:"dot_binary"`
	PortServiceNames bool   `yaml:"port_service_names"`
}

type StateConfig struct {
	Driver string `yaml:"driver"` // file, mysql or sqlite
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type EvidenceConfig struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	EvidenceID string        `yaml:"evidence_id"`
	Timeout    time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Type:               TypePfSense,
			InsecureSkipVerify: true,
		},
		HTTP: HTTPConfig{
			LookupTimeout: 10 * time.Second,
			RulesTimeout:  30 * time.Second,
		},
		Labels: LabelsConfig{
			Any:      model.AnyValue,
			Unknown:  model.UnknownLabel,
			Disabled: model.DisabledLabel,
			Floating: append([]string(nil), model.FloatingRulesLabels...),
		},
		Output: OutputConfig{ExportCSV: true},
		Graph:  GraphConfig{DotBinary: "dot"},
		State:  StateConfig{Driver: "file", Path: "md5sum.txt"},
		Evidence: EvidenceConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"FRC2G_PFSENSE_TOKEN", &c.PfSense.Token},
		{"FRC2G_OPNSENSE_KEY", &c.OPNsense.Key},
		{"FRC2G_OPNSENSE_SECRET", &c.OPNsense.Secret},
		{"FRC2G_EVIDENCE_TOKEN", &c.Evidence.Token},
	}
	for _, o := range overrides {
		if v := getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) normalize() {
	c.Gateway.Type = strings.ToLower(strings.TrimSpace(c.Gateway.Type))
	c.PfSense.BaseURL = baseURL(c.PfSense.BaseURL)
	c.OPNsense.BaseURL = baseURL(c.OPNsense.BaseURL)
	c.Evidence.URL = strings.TrimRight(strings.TrimSpace(c.Evidence.URL), "/")

	d := Default()
	if c.HTTP.LookupTimeout <= 0 {
		c.HTTP.LookupTimeout = d.HTTP.LookupTimeout
	}
	if c.HTTP.RulesTimeout <= 0 {
		c.HTTP.RulesTimeout = d.HTTP.RulesTimeout
	}
	if c.Evidence.Timeout <= 0 {
		c.Evidence.Timeout = d.Evidence.Timeout
	}
	if c.Labels.Any == "" {
		c.Labels.Any = d.Labels.Any
	}
	if c.Labels.Unknown == "" {
		c.Labels.Unknown = d.Labels.Unknown
	}
	if c.Labels.Disabled == "" {
		c.Labels.Disabled = d.Labels.Disabled
	}
	if len(c.Labels.Floating) == 0 {
		c.Labels.Floating = d.Labels.Floating
	}
	if c.Graph.DotBinary == "" {
		c.Graph.DotBinary = d.Graph.DotBinary
	}
	if c.State.Driver == "" {
		c.State.Driver = d.State.Driver
	}
	if c.State.Path == "" {
		c.State.Path = d.State.Path
	}
	for i, iface := range c.Gateway.Interfaces {
		c.Gateway.Interfaces[i] = strings.ToLower(strings.TrimSpace(iface))
	}
}

// baseURL accepts either a bare base URL or a full API endpoint.
func baseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if strings.Contains(u, "/api/") || strings.HasSuffix(u, "/api") {
		u = utils.ExtractBaseURL(u)
	}
	return u
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	switch c.Gateway.Type {
	case TypePfSense:
		if !IsSet(c.PfSense.BaseURL) {
			return fmt.Errorf("pfsense.base_url must be set")
		}
	case TypeOPNsense:
		if !IsSet(c.OPNsense.BaseURL) {
			return fmt.Errorf("opnsense.base_url must be set")
		}
	default:
		return fmt.Errorf("unknown gateway type: %q (use %q or %q)", c.Gateway.Type, TypePfSense, TypeOPNsense)
	}
	switch c.State.Driver {
	case "file", "mysql", "sqlite":
	default:
		return fmt.Errorf("unknown state driver: %q", c.State.Driver)
	}
	if c.State.Driver != "file" && c.State.DSN == "" {
		return fmt.Errorf("state.dsn must be set for driver %s", c.State.Driver)
	}
	return nil
}

// BaseURL returns the API base URL of the configured gateway type.
func (c *Config) BaseURL() string {
	if c.Gateway.Type == TypeOPNsense {
		return c.OPNsense.BaseURL
	}
	return c.PfSense.BaseURL
}

// FirewallHost is the host part of the gateway base URL, "unknown" when unset.
func (c *Config) FirewallHost() string {
	return utils.ExtractHost(c.BaseURL())
}

// GatewayName is the configured display name, or the firewall host.
func (c *Config) GatewayName() string {
	if IsSet(c.Gateway.Name) {
		return c.Gateway.Name
	}
	return c.FirewallHost()
}

// OutputDir defaults to results/<firewall host>.
func (c *Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return "results/" + c.FirewallHost()
}

// WorkCSV is the transient canonical rule file, deleted at the end of a run.
func (c *Config) WorkCSV() string {
	if c.Output.WorkCSV != "" {
		return c.Output.WorkCSV
	}
	return "output_" + c.FirewallHost() + ".csv"
}

// EvidenceUploadURL returns the evidence revision upload endpoint, or "" when
// the evidence integration is not fully configured.
func (c *Config) EvidenceUploadURL() string {
	if !IsSet(c.Evidence.URL) || !IsSet(c.Evidence.Token) || !IsSet(c.Evidence.EvidenceID) {
		return ""
	}
	return c.Evidence.URL + "/api/evidences/" + c.Evidence.EvidenceID + "/upload/"
}

// IsSet reports whether v holds a real value rather than "" or a "<...>" placeholder.
func IsSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !utils.IsPlaceholder(v)
}
