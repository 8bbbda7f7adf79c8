// Package config loads execkit configuration.
//
// Values come from, in increasing priority: built-in defaults, an
// execkit.yml file, and EXECKIT_* environment variables (a .env file is
// loaded into the environment first). Nested keys use underscores:
//
//	process:
//	  timeout: 30s          # EXECKIT_PROCESS_TIMEOUT=30s
//	  grace_period: 5s      # EXECKIT_PROCESS_GRACE_PERIOD=5s
//	logging:
//	  level: debug          # EXECKIT_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("execkit.yml"))
package config
