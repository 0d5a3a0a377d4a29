// Package library describes the libraries the dependency finder can choose
// from: their on-disk layout, their optional library.json or library.yaml
// descriptor, and the lib_deps entries that request them.
package library
