// Package handler implements the HTTP endpoint that serves the web client
// configuration. It derives the client-facing address from the request,
// assembles the settings document and writes it to the response.
package handler
