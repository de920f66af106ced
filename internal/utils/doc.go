// Package utils exposes the configuration and logging plumbing shared by the CLI.
//
// ConfigurationLoader layers defaults, an optional YAML file, prefixed environment
// variables, and explicitly bound plain environment variables through Viper.
// LoggerFactory builds zap loggers that write diagnostics to standard error.
package utils
