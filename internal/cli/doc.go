// Package cli turns the envbuild command line into an app.Config. It owns
// flag validation and maps usage errors onto process exit codes.
package cli
