// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package env reads typed values from environment variables.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GetAsString returns the value of key, or defaultValue when it is unset.
// A required key that is unset is an error.
func GetAsString(key string, required bool, defaultValue string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		if required {
			return "", fmt.Errorf("required environment variable %s is not set", key)
		}

		return defaultValue, nil
	}

	return strings.TrimSpace(value), nil
}

// GetAsInt returns the value of key parsed as an integer.
// An unparsable value falls back to defaultValue unless the key is required.
func GetAsInt(key string, required bool, defaultValue int) (int, error) {
	value, err := GetAsString(key, required, "")
	if err != nil {
		return 0, err
	}

	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		if required {
			return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
		}

		return defaultValue, nil
	}

	return parsed, nil
}

// GetAsBool returns the value of key parsed as a boolean.
func GetAsBool(key string, required bool, defaultValue bool) (bool, error) {
	value, err := GetAsString(key, required, "")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(value) {
	case "":
		return defaultValue, nil
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		if required {
			return false, fmt.Errorf("environment variable %s must be a boolean value", key)
		}

		return defaultValue, nil
	}
}
