// Package vector holds what the VectorIndex backends share: the embedding
// blob encoding, cosine scoring, ranking and record preparation.
//
// Backends live in subpackages:
//   - sqlite: default, a single vectors.db file scanned brute-force
//   - pgvector: PostgreSQL with the vector extension
//   - memory: in-process, for tests and ephemeral runs
package vector
