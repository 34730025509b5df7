package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narayaneeyam/dashakam/internal/loader"
)

const nestedDoc = `<section>
<h2 data-chapter="Narayaneeyam D001">Narayaneeyam D001</h2>
<div class="verse">
<p data-start="00:00:00.000" data-end="00:00:04.000">first nested</p>
<p data-start="00:00:04.000" data-end="00:00:09.000">second nested</p>
</div>
<p data-start="00:01:10.000" data-end="00:01:15.000">plain verse</p>
</section>`

func TestPrintChapterTimesNestedVerses(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{loader.TextDocument, loader.TransliterationDocument} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(nestedDoc), 0o600))
	}

	cfg := validConfig()
	cfg.Docs = dir
	cfg.Style = "notty"
	cfg.Width = 80
	cfg.DiskCache = 1 << 20 // ignored for local documents

	ld, closeLoader := newLoader(cfg)
	defer closeLoader()

	var buf bytes.Buffer
	require.NoError(t, printChapter(context.Background(), ld, 1, cfg, &buf))

	out := buf.String()
	assert.Contains(t, out, "Narayaneeyam D001")
	assert.Contains(t, out, "0:00")
	assert.Contains(t, out, "first nested")
	assert.Contains(t, out, "0:04")
	assert.Contains(t, out, "second nested")
	assert.Contains(t, out, "1:10")
	assert.Contains(t, out, "plain verse")
}
