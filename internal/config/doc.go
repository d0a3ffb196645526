// Package config defines the application configuration structure and
// loading logic. Configuration comes from an optional YAML file and from
// environment variables with the TASKRELAY_ prefix, with the environment
// taking precedence. All values are validated before the application
// starts.
package config
