package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Environment variables consulted by ApplyEnvironment.
const (
	EnvHost           = "ONION_HOST"
	EnvUseSimulation  = "ONION_USE_SIMULATION"
	EnvNetworkTimeout = "ONION_NETWORK_TIMEOUT"
	EnvScheme         = "ONION_SCHEME"
	EnvKeyStore       = "ONION_KEYSTORE"
	EnvLogLevel       = "ONION_LOG_LEVEL"
	EnvLogFormat      = "ONION_LOG_FORMAT"
)

// ApplyEnvironment overrides configuration from ONION_* environment
// variables. Values that fail to parse are logged and ignored.
func (cfg *Config) ApplyEnvironment() {
	parseString(EnvHost, &cfg.Network.Host)
	parseBool(EnvUseSimulation, &cfg.Transport.UseSimulation)
	parseTimeout(EnvNetworkTimeout, &cfg.Transport.NetworkTimeout)
	parseString(EnvScheme, &cfg.Crypto.Scheme)
	parseString(EnvKeyStore, &cfg.Crypto.KeyStore)
	parseString(EnvLogLevel, &cfg.Logging.Level)
	parseString(EnvLogFormat, &cfg.Logging.Format)
}

func parseString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// parseBool safely parses a boolean value, logs a warning if parsing fails,
// and only updates dst if parsing succeeds.
func parseBool(name string, dst *bool) {
	s := os.Getenv(name)
	if s == "" {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseBool",
			"env_var":     name,
			"value":       s,
			"error":       err.Error(),
			"using_value": *dst,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	*dst = v
}

// parseTimeout validates the value is within [minTimeout, maxTimeout]
// milliseconds and only updates dst if it is.
func parseTimeout(name string, dst *int) {
	s := os.Getenv(name)
	if s == "" {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeout",
			"env_var":     name,
			"value":       s,
			"error":       err.Error(),
			"using_value": *dst,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if v < minTimeout || v > maxTimeout {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeout",
			"env_var":     name,
			"value":       v,
			"min":         minTimeout,
			"max":         maxTimeout,
			"using_value": *dst,
		}).Warn("Environment variable out of bounds, using default")
		return
	}
	*dst = v
}
