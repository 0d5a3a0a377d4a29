// Package registry provides the central "glue" for the platform system.
//
// A platform describes a toolchain: the compiler and archiver names, the base
// compile flags that seed every environment built for it, and the link flags
// of the final program. Platform modules compiled into the binary register
// themselves at startup; projects may add their own definitions in HCL files
// under platforms/.
//
// During application startup, the registry is populated and then validated so
// a broken platform definition is reported before any environment is built.
package registry
