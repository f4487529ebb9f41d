// Package config handles configuration loading, parsing, and validation
// from config files and PATHWISE_-prefixed environment variables. It provides
// type-safe access to server, database, auth and engine tunables while keeping
// configuration details separate from business logic.
package config
