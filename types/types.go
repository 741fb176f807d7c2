package types

import (
	"fmt"
	"time"
)

// TokenDecimals is the fixed decimal precision of the metering token.
const TokenDecimals = 18

// ActionKind enumerates the metered actions of the editor.
type ActionKind string

const (
	ActionSave   ActionKind = "save"
	ActionSaveAs ActionKind = "save_as"
	ActionPrint  ActionKind = "print"
	ActionEmail  ActionKind = "email"
)

// AllActions lists every ActionKind. A price list must cover all of them.
var AllActions = []ActionKind{ActionSave, ActionSaveAs, ActionPrint, ActionEmail}

func (a ActionKind) String() string {
	return string(a)
}

// Verb is the user facing verb used in messages ("to save", "to print").
func (a ActionKind) Verb() string {
	switch a {
	case ActionSave, ActionSaveAs:
		return "save"
	case ActionPrint:
		return "print"
	case ActionEmail:
		return "email"
	default:
		return string(a)
	}
}

// Valid reports whether a is one of the known action kinds.
func (a ActionKind) Valid() bool {
	for _, k := range AllActions {
		if a == k {
			return true
		}
	}
	return false
}

// ParseActionKind parses the textual form of an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown action kind %q", s)
	}
	return k, nil
}

// DeploymentConfig is the configured pair of contract addresses for a network.
type DeploymentConfig struct {
	Token   string `json:"token" yaml:"token" validate:"required,eth_addr"`
	Invoice string `json:"invoice" yaml:"invoice" validate:"required,eth_addr"`
}

// Config contains the global configuration of the gateway.
type Config struct {
	LogLevel      string `json:"logLevel,omitempty" yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool   `json:"enableMetrics,omitempty" yaml:"enableMetrics"`

	// ConfirmationTimeout bounds how long a submitted payment is watched
	// before it is reported as not confirmed.
	ConfirmationTimeout time.Duration `json:"confirmationTimeout,omitempty" yaml:"confirmationTimeout" validate:"gte=0"`
	PollInterval        time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval" validate:"gte=0"`
	QueryTimeout        time.Duration `json:"queryTimeout,omitempty" yaml:"queryTimeout" validate:"gte=0"`

	// AllowPartialDeployments lets the gateway start when some registry
	// networks have no deployment. Calls on those networks then fail with
	// ErrMissingDeployment.
	AllowPartialDeployments bool `json:"allowPartialDeployments,omitempty" yaml:"allowPartialDeployments"`

	Prices      map[ActionKind]string           `json:"prices,omitempty" yaml:"prices"`
	Deployments map[NetworkKey]DeploymentConfig `json:"deployments,omitempty" yaml:"deployments" validate:"dive"`
	Networks    []NetworkDescriptor             `json:"networks,omitempty" yaml:"networks" validate:"dive"`
}

// Defaults applied by the gateway when the corresponding Config field is zero.
const (
	DefaultConfirmationTimeout = 3 * time.Minute
	DefaultPollInterval        = 2 * time.Second
	DefaultQueryTimeout        = 30 * time.Second
)

// DefaultPrices is the price list used when Config.Prices is empty.
var DefaultPrices = map[ActionKind]string{
	ActionSave:   "1",
	ActionSaveAs: "1",
	ActionPrint:  "0.5",
	ActionEmail:  "0.5",
}
