package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type envValue interface {
	~string | ~int | ~bool | ~float64
}

// GetEnv reads an environment variable and parses it into the type of the default value.
// Unset or empty variables return the default. Values that cannot be parsed are fatal.
func GetEnv[T envValue](envVar string, defaultValue T) T {
	raw, ok := os.LookupEnv(envVar)
	if !ok || raw == "" {
		return defaultValue
	}
	value, err := parseEnvValue[T](raw)
	if err != nil {
		log.Fatalf("environment variable %s is not valid: %s", envVar, err)
	}
	return value
}

func GetRequiredEnv[T envValue](envVar string) T {
	raw, ok := os.LookupEnv(envVar)
	if !ok || raw == "" {
		log.Fatalf("%s environment variable is required", envVar)
	}
	value, err := parseEnvValue[T](raw)
	if err != nil {
		log.Fatalf("environment variable %s is not valid: %s", envVar, err)
	}
	return value
}

// GetEnvList splits a comma separated variable, dropping empty items.
func GetEnvList(envVar string, defaultValue []string) []string {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func GetEnvDuration(envVar string, defaultValue time.Duration, unit time.Duration) time.Duration {
	return time.Duration(GetEnv(envVar, int(defaultValue/unit))) * unit
}

func parseEnvValue[T envValue](raw string) (T, error) {
	var zero T
	var parsed any
	switch any(zero).(type) {
	case string:
		parsed = raw
	case int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return zero, fmt.Errorf("'%s' is not an integer", raw)
		}
		parsed = v
	case bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return zero, fmt.Errorf("'%s' cannot be converted to bool", raw)
		}
		parsed = v
	case float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return zero, fmt.Errorf("'%s' is not a number", raw)
		}
		parsed = v
	default:
		return zero, fmt.Errorf("unsupported type %T", zero)
	}
	return parsed.(T), nil
}
