// Package hcl provides the HCL implementation of config.Loader. It parses
// the project manifest, resolves ${sysenv.NAME} references and translates
// the project, defaults and environment blocks into the format-agnostic
// config.Model. Nothing outside this package sees HCL syntax.
package hcl
