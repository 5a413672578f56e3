// Package ir provides the tagged value representation for response bodies,
// request bodies and flow variables.
//
// This package contains value types only. Every other internal package
// imports ir; ir imports nothing internal, so it stays the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - Value is sealed: only Null, Bool, Number, String, Array and Object implement it
//   - A Go nil Value means "undefined" (absent), which is distinct from Null
//   - Numbers are float64, matching JSON number semantics (1 and 1.0 are equal)
//   - Object keys are rendered in RFC 8785 order for deterministic diagnostics
package ir
