// Package driven holds the interfaces the core calls out through.
// Adapters under internal/adapters/driven, internal/chunker and
// internal/extractors implement them.
//
// Ingestion uses Extractor, Chunker, Embedder, VectorIndex, DocumentStore and
// UploadStore. Queries use Embedder, VectorIndex and AnswerGenerator. The LLM
// answer generator adds LLMService and PromptStore. Settings use ConfigStore
// and AIConfigValidator.
//
// This package imports only domain.
package driven
