// Package config loads keyer runner configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML file named by
// --config or KEYER_CONFIG, environment overrides, command-line flags
// (applied by the caller). The result is validated before use and is
// never written back.
package config
