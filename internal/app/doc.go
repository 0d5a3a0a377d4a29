// Package app contains the core application logic. It wires the manifest
// loader, the platform registry, the flag pipeline, the dependency finder,
// the assembler and the dispatcher into one build run per environment,
// decoupled from any specific entrypoint like a CLI.
package app
