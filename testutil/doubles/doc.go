// Package doubles contains hand-written test doubles (spies, stubs, fakes) for the collaborators
// of the library workflows and for the observability contracts.
package doubles
