// Package config provides configuration loading and validation for the speech
// preparation service. YAML files are overlaid on documented defaults and
// validated once at load time.
package config
