// Package search defines the core types and collaborator interfaces shared by
// the fetch, match, queue, worker and sink subsystems.
package search
