// Package config loads the pilot configuration.
//
// Values start from LoadBaseline, are overlaid by an optional YAML file and
// PILOT_* environment variables, and are checked by Validate before use.
package config
