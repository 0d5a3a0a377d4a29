// Package config defines the format-agnostic project model: the project
// layout plus one Environment descriptor per build environment. Concrete
// manifest formats (see package hcl) implement the Loader interface and
// translate into this model; nothing downstream sees the source syntax.
package config
