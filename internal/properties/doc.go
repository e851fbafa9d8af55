// Package properties provides the server-wide settings store that the web
// client configuration is read from. Lookups are typed and always take a
// default: a missing key, or a value that cannot be converted to the requested
// type, yields the default instead of an error.
//
// Two implementations are available. Properties is backed by a YAML file plus
// environment variables and can be reloaded while the service runs. Map is a
// plain in-memory store.
package properties
