package util

import (
	"os"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// GetEnvironmentDuration reads a Go duration string (eg. 15m) from the environment, returning fallback
// when the variable is unset or cannot be parsed
func GetEnvironmentDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	value := env[key]
	if value == "" {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return duration
}

func GetEnvironmentOrDefault(env map[string]string, key string, fallback string) string {
	if env[key] == "" {
		return fallback
	}

	return env[key]
}
