// Package ldf is the library dependency finder. Starting from the project's
// sources it follows #include directives breadth-first across the search
// roots and builds the dependency graph of the libraries the project uses.
//
// Modes:
//
//	chain   follow included headers and each header's same-stem source
//	deep    additionally scan every source of each discovered library
//	chain+  chain, also seeded from the project's test directory
//	deep+   deep, also seeded from the project's test directory
//
// Preprocessor conditionals are not evaluated; every directive counts.
package ldf
