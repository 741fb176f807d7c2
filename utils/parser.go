package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/meter/types"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	if err := validate.RegisterValidation("filename_chars", validateFilenameChars); err != nil {
		panic(err)
	}
}

// DefaultConfigPaths are tried in order by LoadConfig when no path is given.
var DefaultConfigPaths = []string{
	"configs/meter.yaml",
	"meter.yaml",
}

// Environment overrides applied after the file is read.
const (
	EnvLogLevel            = "METER_LOG_LEVEL"
	EnvEnableMetrics       = "METER_ENABLE_METRICS"
	EnvConfirmationTimeout = "METER_CONFIRMATION_TIMEOUT"
	EnvPollInterval        = "METER_POLL_INTERVAL"
)

// ParseConfig parses and validates a gateway Config from YAML
func ParseConfig(data []byte) (*types.Config, error) {
	var config types.Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &types.MeterError{
			Code:    types.CodeConfig,
			Message: fmt.Sprintf("failed to parse config: %v", err),
			Err:     err,
		}
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig validates struct tags and the price table of config
func ValidateConfig(config *types.Config) error {
	if err := validate.Struct(config); err != nil {
		return &types.MeterError{
			Code:    types.CodeConfig,
			Message: fmt.Sprintf("validation failed: %v", err),
			Err:     err,
		}
	}

	for kind, price := range config.Prices {
		if _, err := types.ParseActionKind(string(kind)); err != nil {
			return &types.MeterError{
				Code:    types.CodeConfig,
				Message: "invalid price table",
				Err:     err,
			}
		}
		if _, err := ValidateAmount(price); err != nil {
			return &types.MeterError{
				Code:    types.CodeConfig,
				Message: fmt.Sprintf("price for %s: %v", kind, err),
				Err:     err,
			}
		}
	}

	return nil
}

// LoadConfig reads the first readable file among path (or DefaultConfigPaths
// when path is empty), then applies METER_* environment overrides. A missing
// file is not an error: the zero Config plus overrides is returned.
func LoadConfig(path string) (*types.Config, error) {
	candidates := DefaultConfigPaths
	if path != "" {
		candidates = []string{path}
	}

	config := &types.Config{}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &types.MeterError{
				Code:    types.CodeConfig,
				Message: fmt.Sprintf("failed to read %s", candidate),
				Err:     err,
			}
		}

		config, err = ParseConfig(data)
		if err != nil {
			return nil, err
		}
		break
	}

	if err := ApplyEnvOverrides(config); err != nil {
		return nil, err
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnvOverrides copies METER_* variables onto config.
func ApplyEnvOverrides(config *types.Config) error {
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		config.LogLevel = strings.ToLower(level)
	}

	if raw := strings.TrimSpace(os.Getenv(EnvEnableMetrics)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return envError(EnvEnableMetrics, err)
		}
		config.EnableMetrics = v
	}

	if raw := strings.TrimSpace(os.Getenv(EnvConfirmationTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return envError(EnvConfirmationTimeout, err)
		}
		config.ConfirmationTimeout = d
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPollInterval)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return envError(EnvPollInterval, err)
		}
		config.PollInterval = d
	}

	return nil
}

func envError(name string, err error) error {
	return &types.MeterError{
		Code:    types.CodeConfig,
		Message: fmt.Sprintf("invalid %s", name),
		Err:     err,
	}
}
