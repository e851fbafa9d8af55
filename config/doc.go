// Package config handles loading and parsing of the service configuration from
// YAML files and environment variables. It defines the listen address, TLS
// material, the XMPP server identity used when the settings store does not
// provide one, where the web client is served, and where the settings store
// lives.
package config
