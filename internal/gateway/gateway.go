// Package gateway fetches aliases and rules from pfSense and OPNsense APIs and
// normalizes vendor rules into canonical rows.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"frc2g/internal/alias"
	"frc2g/internal/config"
	"frc2g/internal/model"
	"frc2g/internal/utils"
)

// RawRule is one rule object as returned by a vendor API.
type RawRule struct {
	Value
}

// RuleSet is the outcome of a rule collection.
type RuleSet struct {
	Rules []RawRule
	// Interfaces are the interfaces fetched individually, configured or detected.
	Interfaces []string
}

// Gateway is a vendor strategy.
type Gateway interface {
	Type() string
	// FetchAliases builds the lookup tables. Failures are logged and leave the
	// affected table empty.
	FetchAliases(ctx context.Context) *alias.Tables
	// FetchRules collects global and per-interface rules, deduplicated by rule id.
	FetchRules(ctx context.Context) RuleSet
	Normalize(raw RawRule, r *alias.Resolver) model.CanonicalRule
}

type Options struct {
	// Name prefixes every GATEWAY value.
	Name          string
	Interfaces    []string
	LookupTimeout time.Duration
	RulesTimeout  time.Duration
	UnknownLabel  string
	FloatingLabel string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "unknown"
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 10 * time.Second
	}
	if o.RulesTimeout <= 0 {
		o.RulesTimeout = 30 * time.Second
	}
	if o.UnknownLabel == "" {
		o.UnknownLabel = model.UnknownLabel
	}
	if o.FloatingLabel == "" {
		o.FloatingLabel = model.FloatingLabel
	}
	return o
}

// New builds the gateway selected by cfg.Gateway.Type.
func New(cfg *config.Config) (Gateway, error) {
	opts := Options{
		Name:          cfg.GatewayName(),
		Interfaces:    cfg.Gateway.Interfaces,
		LookupTimeout: cfg.HTTP.LookupTimeout,
		RulesTimeout:  cfg.HTTP.RulesTimeout,
		UnknownLabel:  cfg.Labels.Unknown,
	}
	if len(cfg.Labels.Floating) > 0 {
		opts.FloatingLabel = cfg.Labels.Floating[0]
	}

	switch cfg.Gateway.Type {
	case config.TypePfSense:
		client := NewClient(cfg.PfSense.BaseURL, cfg.Gateway.InsecureSkipVerify, APIKey(cfg.PfSense.Token))
		return NewPfSense(client, opts), nil
	case config.TypeOPNsense:
		client := NewClient(cfg.OPNsense.BaseURL, cfg.Gateway.InsecureSkipVerify, BasicAuth(cfg.OPNsense.Key, cfg.OPNsense.Secret))
		return NewOPNsense(client, opts), nil
	default:
		return nil, fmt.Errorf("unknown gateway type: %q", cfg.Gateway.Type)
	}
}

// get performs one API call and logs failures. ok is false on any failure.
func get(ctx context.Context, c *Client, operation, path string, params url.Values, timeout time.Duration) (Value, bool) {
	endpoint := c.Endpoint(path, params)
	slog.Debug("API request", "operation", operation, "url", endpoint)
	v, err := c.GetJSON(ctx, path, params, timeout)
	if err != nil {
		logRequestError(operation, endpoint, err)
		return Value{}, false
	}
	return v, true
}

// action maps a vendor action to PASS/BLOCK/REJECT or the unknown label.
func action(raw any, unknown string) string {
	s, _ := alias.Text(raw)
	if a, ok := model.ParseAction(s); ok {
		return string(a)
	}
	if s != "" {
		slog.Debug("Unrecognized rule action", "action", s)
	}
	return unknown
}

// normalizePort resolves a port alias and strips whitespace.
func normalizePort(r *alias.Resolver, raw any) string {
	return utils.NormalizePorts(r.Resolve(raw, model.FieldDestinationPort), r.Any())
}
