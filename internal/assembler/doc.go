// Package assembler turns the resolved flag sets and dependency graph of one
// environment into compile and link units.
//
// Every unit receives the global set. Units built from project sources also
// receive the src-only set, and units built from a library's sources receive
// the flags that library declares in its descriptor and no other library's.
// The argument vector of a compile unit is laid out as compile flags, then
// defines, then include paths.
//
// Units are immutable once the Plan is returned. The assembler never runs a
// compiler; that is the toolchain executor's job.
package assembler
