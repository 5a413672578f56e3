// Package match implements structural contract matching of response bodies.
//
// A Pattern is a closed tagged union describing the expected shape of a
// value: exact scalars, typed wildcards, partial objects, positional array
// prefixes, ArrayOf and ArrayContaining. Match walks an ir.Value against a
// Pattern in declaration order and returns the first Mismatch, or nil.
//
// The engine performs no I/O and returns no errors. Callers that need to fail
// a step convert the Mismatch into an error at their own boundary.
//
// Patterns are usually built with the constructors in this package, or
// decoded from flow files with FromYAML and FromCUE.
package match
