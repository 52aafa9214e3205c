// Package file keeps settings and answer prompts under the data directory:
// config.toml through ConfigStore and prompts/*.txt through PromptStore.
package file
