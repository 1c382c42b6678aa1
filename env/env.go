package env

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// GetEnv reads an environment variable and converts it to the type of the
// default value. A missing or unparseable value yields the default. The first
// call loads .env if one exists next to the binary.
func GetEnv[T any](name string, defaultValue T) T {
	loadOnce.Do(func() {
		// A missing .env file is fine; real deployments set the
		// environment directly.
		_ = godotenv.Load()
	})

	valueStr, ok := os.LookupEnv(name)
	if !ok || valueStr == "" {
		return defaultValue
	}

	var value any

	switch any(defaultValue).(type) {
	case int:
		v, err := strconv.Atoi(valueStr)
		if err != nil {
			return defaultValue
		}
		value = v
	case bool:
		v, err := strconv.ParseBool(valueStr)
		if err != nil {
			return defaultValue
		}
		value = v
	case float64:
		v, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return defaultValue
		}
		value = v
	default:
		value = valueStr
	}

	return value.(T)
}
