package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

func longText(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "word" + strconv.Itoa(i)
	}
	return strings.Join(parts, " ")
}

func strategies(opts ...Option) []driven.Chunker {
	return []driven.Chunker{NewWords(opts...), NewRecursive(opts...)}
}

func TestNewConfig(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		w := NewWords()
		if w.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, w.ChunkSize())
		}
		if w.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, w.Overlap())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		r := NewRecursive(WithChunkSize(100), WithOverlap(150))
		if r.Overlap() != 25 {
			t.Errorf("expected overlap clamped to 25, got %d", r.Overlap())
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		w := NewWords(WithChunkSize(0), WithOverlap(-1))
		if w.ChunkSize() != DefaultChunkSize || w.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected defaults, got %d/%d", w.ChunkSize(), w.Overlap())
		}
	})
}

func TestChunk_EmptyText(t *testing.T) {
	for _, c := range strategies() {
		for _, text := range []string{"", "   ", "\n\n\t"} {
			if got := c.Chunk(text, "a.pdf", "f1"); len(got) != 0 {
				t.Errorf("%s: expected no chunks for %q, got %d", c.Name(), text, len(got))
			}
		}
	}
}

func TestChunk_IndicesContiguous(t *testing.T) {
	texts := []string{
		"short",
		longText(50),
		longText(2000),
		strings.Repeat("paragraph one line\nline two\n\n", 120),
		strings.Repeat("x", 3500),
	}

	for _, c := range strategies(WithChunkSize(200), WithOverlap(40)) {
		for ti, text := range texts {
			chunks := c.Chunk(text, "doc.pdf", "file-1")
			if len(chunks) == 0 {
				t.Fatalf("%s text %d: expected chunks", c.Name(), ti)
			}
			for i, ch := range chunks {
				if ch.ChunkIndex != i {
					t.Errorf("%s text %d: chunk %d has index %d", c.Name(), ti, i, ch.ChunkIndex)
				}
				if ch.TotalChunks != len(chunks) {
					t.Errorf("%s text %d: chunk %d has total %d, want %d", c.Name(), ti, i, ch.TotalChunks, len(chunks))
				}
				if ch.Metadata[domain.MetaTotalChunks] != strconv.Itoa(len(chunks)) {
					t.Errorf("%s text %d: metadata total_chunks %q", c.Name(), ti, ch.Metadata[domain.MetaTotalChunks])
				}
				if ch.ID != domain.ChunkID("file-1", i) {
					t.Errorf("%s: unexpected id %q", c.Name(), ch.ID)
				}
				if strings.TrimSpace(ch.Text) == "" {
					t.Errorf("%s: chunk %d is empty", c.Name(), i)
				}
			}
		}
	}
}

func TestChunk_Provenance(t *testing.T) {
	chunks := NewWords().Chunk("some content here", "report.pdf", "abc")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	ch := chunks[0]
	if ch.Text != "some content here" {
		t.Errorf("unexpected text %q", ch.Text)
	}
	if ch.SourceFileID != "abc" || ch.SourceFilename != "report.pdf" {
		t.Errorf("unexpected provenance %q %q", ch.SourceFileID, ch.SourceFilename)
	}
	want := map[string]string{
		domain.MetaSource:      "report.pdf",
		domain.MetaFileID:      "abc",
		domain.MetaChunkIndex:  "0",
		domain.MetaTotalChunks: "1",
	}
	for k, v := range want {
		if ch.Metadata[k] != v {
			t.Errorf("metadata %s = %q, want %q", k, ch.Metadata[k], v)
		}
	}
}

func TestWords_Split(t *testing.T) {
	tests := []struct {
		size, overlap int
		want          []string
	}{
		{9, 4, []string{"one two three", "four five"}},
		{9, 6, []string{"one two three", "three four", "four five"}},
		{1000, 200, []string{"one two three four five"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("size %d overlap %d", tt.size, tt.overlap), func(t *testing.T) {
			w := NewWords(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			got := w.split("one two  three\nfour\tfive")
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWords_OverlapCarriesTrailingTokens(t *testing.T) {
	w := NewWords(WithChunkSize(100), WithOverlap(30))
	chunks := w.Chunk(longText(300), "a.pdf", "f")
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		first := strings.Fields(chunks[i].Text)[0]
		if !contains(prev, first) {
			t.Errorf("chunk %d does not start with content from chunk %d", i, i-1)
		}
		if runeLen(chunks[i-1].Text) < 100 {
			t.Errorf("non-final chunk %d shorter than chunk size", i-1)
		}
	}
}

func TestWords_CoversEveryToken(t *testing.T) {
	text := longText(500)
	seen := map[string]bool{}
	for _, ch := range NewWords(WithChunkSize(120), WithOverlap(20)).Chunk(text, "a.pdf", "f") {
		for _, tok := range strings.Fields(ch.Text) {
			seen[tok] = true
		}
	}
	for _, tok := range strings.Fields(text) {
		if !seen[tok] {
			t.Fatalf("token %q missing from chunks", tok)
		}
	}
}

func TestRecursive_PrefersParagraphs(t *testing.T) {
	r := NewRecursive(WithChunkSize(5))
	got := r.split("aaa\n\nbbb", r.separators)
	if strings.Join(got, "|") != "aaa|bbb" {
		t.Errorf("got %q", got)
	}
}

func TestRecursive_RespectsChunkSize(t *testing.T) {
	r := NewRecursive(WithChunkSize(80), WithOverlap(20))
	text := strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 40)
	for i, ch := range r.Chunk(text, "a.pdf", "f") {
		if runeLen(ch.Text) > 80 {
			t.Errorf("chunk %d has %d characters", i, runeLen(ch.Text))
		}
	}
}

func TestRecursive_SplitsUnbrokenText(t *testing.T) {
	r := NewRecursive(WithChunkSize(100), WithOverlap(10))
	chunks := r.Chunk(strings.Repeat("é", 450), "a.pdf", "f")
	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if runeLen(ch.Text) > 100 {
			t.Errorf("chunk has %d characters", runeLen(ch.Text))
		}
	}
}

func TestChunk_PageMetadata(t *testing.T) {
	extracted := domain.ExtractedText{
		Pages:     []string{"alpha beta gamma", "delta epsilon zeta"},
		PageCount: 2,
	}
	chunks := NewWords(WithChunkSize(20), WithOverlap(0)).Chunk(extracted.Text(), "a.pdf", "f")

	want := []string{"1", "1", "2"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Metadata[domain.MetaPage] != want[i] {
			t.Errorf("chunk %d page = %q, want %q", i, ch.Metadata[domain.MetaPage], want[i])
		}
	}
}

func TestChunk_NoPageMarkers(t *testing.T) {
	chunks := NewWords().Chunk("plain text", "a.pdf", "f")
	if _, ok := chunks[0].Metadata[domain.MetaPage]; ok {
		t.Error("expected no page metadata")
	}
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
