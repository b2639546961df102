// Package config loads the ddb node configuration.
//
// Files are YAML or TOML, chosen by extension. ${VAR} references are
// expanded from the environment before parsing, and duration fields are
// written as Go duration strings ("30s", "5m"). A loaded Config builds the
// blueprint registry, identity provider and resolver registry a Manager
// is started with.
package config
