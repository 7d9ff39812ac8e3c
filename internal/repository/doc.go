// Package repository defines the persistence interface for saved topologies.
//
// A topology is stored under its name as a versioned save document (see
// package codec). Every save also appends a revision carrying the document
// and the validation findings at that moment, so earlier layouts can be
// inspected or restored.
//
// The sqlite subpackage implements the interface on modernc.org/sqlite and
// is tested against in-memory databases.
package repository
