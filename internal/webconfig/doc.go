// Package webconfig assembles the JSON settings document consumed by the
// inVerse web client. Values are read from the server-wide settings store
// under the "inverse.config." prefix, each with a fixed default, and combined
// with the server identity, the UI language and the address the client used
// to reach the server.
//
// A handful of client settings are fixed and cannot be changed through the
// store; see Assembler.Build.
package webconfig
