// Package types contains the core data types, interfaces, and sentinel
// errors shared by the sluice library and its subpackages.
//
// The root sluice package re-exports the public types via aliases, so user
// code rarely imports this package directly. Internal packages import it to
// avoid a dependency cycle on the root package.
package types
