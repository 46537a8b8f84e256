// Package config loads deskflow client configuration from a YAML file
// layered with environment variables.
package config
