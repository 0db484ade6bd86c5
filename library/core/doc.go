// Package core contains the functional core of the library: the Book and User entities,
// the validation rules for them, and the error taxonomy the workflows fail with.
//
// Nothing in here does I/O. Validation is exclusively done by the Validate* functions,
// the entities are plain data holders.
package core
