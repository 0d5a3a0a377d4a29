// Package hook runs the user scripts listed in extra_scripts.
//
// A script is a Go source file in package main that imports "envbuild/build"
// and defines
//
//	func Apply(env *build.Env) error
//
// (the error result is optional). Scripts are interpreted with yaegi, may only
// import a small set of standard packages, and can change flags solely through
// the methods of *build.Env.
package hook
