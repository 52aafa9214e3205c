// Package domain defines neuroquery's entities, settings and errors:
// Document and its status, Chunk, Job, the query types and StreamFrame.
//
// It imports only the standard library. Every other package may import it.
package domain
