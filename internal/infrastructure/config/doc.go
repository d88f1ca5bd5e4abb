// Package config loads and validates webthingd configuration.
//
// Configuration comes from three layers, each overriding the last:
// hardcoded defaults, a YAML file, and WEBTHINGD_* environment variables.
// Default() alone produces a valid configuration, so the daemon runs with
// no config file at all.
package config
