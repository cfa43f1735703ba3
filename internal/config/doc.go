// Package config provides configuration loading for patternd.
//
// Precedence (highest to lowest): environment variables, YAML config file,
// hardcoded defaults. The engine itself never reads configuration; everything
// is injected at construction from the Config built here.
package config
