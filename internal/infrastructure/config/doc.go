// Package config handles loading and validating entitykit configuration.
//
// This package manages:
//   - Loading configuration from a YAML file, or from layered per-environment files
//   - Overriding with environment variables
//   - A flattened dotted-key view for keys the typed structure does not declare
//   - Validation of required fields
//
// Flattened keys join nested maps with "." and lists with "|". A value of the
// form $NAME is read from the environment variable NAME at lookup time, which
// keeps secrets out of committed files.
//
// Usage:
//
//	cfg, err := config.LoadLayered("configs", config.Environment())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	impl, ok := cfg.Value("instances.entity.Clock")
package config
