// Package services implements the driving ports on top of the driven ones.
//
// Pipeline is the facade the driving adapters use. It owns an
// IngestionQueue, whose single worker extracts, chunks, embeds and indexes
// uploads, and a QueryService, which embeds queries, searches the index and
// streams the generated answer. SettingsService reads and writes config.toml.
package services
