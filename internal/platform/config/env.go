// Package config loads process configuration from PAYROLLWATCH_* environment
// variables. Each component declares its own env struct and applies defensive
// defaults after parsing.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
