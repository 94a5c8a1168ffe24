package config

import (
	"fmt"
	"os"
)

// Validate checks if the settings are usable.
func (s *Settings) Validate() error {
	if s.ConfSource == "" {
		return fmt.Errorf("conf_source is required")
	}
	if s.Env == "" {
		return fmt.Errorf("env is required")
	}

	// Only validate directory existence when a command actually needs the
	// configuration tree. This keeps help and init working anywhere.
	return nil
}

// ValidateConfSource checks that the configuration tree exists.
func (s *Settings) ValidateConfSource() error {
	if _, err := os.Stat(s.ConfSource); os.IsNotExist(err) {
		return fmt.Errorf("conf source does not exist: %s\nHint: run \"leapdata init\" to scaffold a project or use --conf to point at your configuration tree", s.ConfSource)
	}
	return nil
}
