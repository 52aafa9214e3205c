// Package extractors provides the PDF text extractors and the registry that
// selects one by engine name.
//
// Each engine lives in its own subpackage and implements driven.Extractor.
// Extractors return page-segmented text; a document without any text is an
// extraction error so it fails at ingestion instead of indexing nothing.
package extractors
