package model

import "strings"

// Default sentinels. The effective values come from configuration.
const (
	AnyValue      = "Any"
	UnknownLabel  = "<unknown>"
	DisabledLabel = "Rule disabled"
	FloatingLabel = "Floating-rules"

	True  = "True"
	False = "False"
)

// FloatingRulesLabels are the gateway suffixes that mark a floating-rules cluster.
var FloatingRulesLabels = []string{"Floating-rules", "Regles-flottantes", "Règles flottantes"}

// CSVHeader is the fixed column order of the canonical rule file.
var CSVHeader = []string{"SOURCE", "GATEWAY", "ACTION", "PROTOCOL", "PORT", "DESTINATION", "COMMENT", "DISABLED", "FLOATING"}

type Action string

const (
	ActionPass   Action = "PASS"
	ActionBlock  Action = "BLOCK"
	ActionReject Action = "REJECT"
)

// ParseAction upper-cases a vendor action. ok is false for anything outside PASS/BLOCK/REJECT.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionPass, ActionBlock, ActionReject:
		return a, true
	}
	return a, false
}

// FieldKind selects the alias lookup precedence used when resolving a raw value.
type FieldKind int

const (
	FieldNone FieldKind = iota
	FieldSource
	FieldInterface
	FieldDestination
	FieldDestinationPort
)

func (k FieldKind) String() string {
	switch k {
	case FieldSource:
		return "source"
	case FieldInterface:
		return "interface"
	case FieldDestination:
		return "destination"
	case FieldDestinationPort:
		return "destination_port"
	default:
		return "none"
	}
}

type AliasKind string

const (
	AliasHost    AliasKind = "host"
	AliasNetwork AliasKind = "network"
	AliasPort    AliasKind = "port"
)

// Supported reports whether aliases of this kind are retained.
func (k AliasKind) Supported() bool {
	return k == AliasHost || k == AliasNetwork || k == AliasPort
}

type AliasEntry struct {
	Name        string
	Kind        AliasKind
	Content     string // addresses or ports joined with ", "
	Description string
}

// CanonicalRule is the vendor independent form of one firewall rule.
type CanonicalRule struct {
	Source      string
	Gateway     string // "<gateway name>/<interface or Floating-rules>"
	Action      string
	Protocol    string
	Port        string
	Destination string
	Comment     string
	Disabled    string
	Floating    string
}

// Record returns the rule in CSVHeader order.
func (r CanonicalRule) Record() []string {
	return []string{r.Source, r.Gateway, r.Action, r.Protocol, r.Port, r.Destination, r.Comment, r.Disabled, r.Floating}
}

// Interface returns the part of Gateway after the first "/".
func (r CanonicalRule) Interface() string {
	if _, iface, ok := strings.Cut(r.Gateway, "/"); ok {
		return iface
	}
	return r.Gateway
}

func (r CanonicalRule) IsDisabled() bool { return IsTrue(r.Disabled) }

func (r CanonicalRule) IsFloating() bool { return IsTrue(r.Floating) }

// IsTrue accepts the boolean spellings found in canonical files.
func IsTrue(s string) bool {
	s = strings.TrimSpace(s)
	return s == True || s == "1" || strings.EqualFold(s, "true")
}

// BoolString renders a boolean the way canonical files store it.
func BoolString(b bool) string {
	if b {
		return True
	}
	return False
}
