package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePDF(t *testing.T, dir, name, text string) string {
	t.Helper()
	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 14)
	pdf.Text(100, 100, text)
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func testItems(t *testing.T) []Item {
	dir := t.TempDir()
	return []Item{
		{
			Path:           writePDF(t, dir, "a.pdf", "Alice"),
			RecipientName:  "Alice Tan",
			ContingentName: "Selangor",
			StateName:      "Selangor",
			SerialNumber:   "CT25/PART/T1/000001",
		},
		{
			Path:           writePDF(t, dir, "b.pdf", "Bob"),
			RecipientName:  "Bob Lim",
			ContingentName: "Penang",
			StateName:      "Penang",
			SerialNumber:   "CT25/PART/T1/000002",
		},
		{
			Path:           writePDF(t, dir, "c.pdf", "Carol"),
			RecipientName:  "Carol Wong",
			ContingentName: "Selangor",
			StateName:      "Selangor",
			SerialNumber:   "CT25/PART/T1/000003",
		},
	}
}

func readArchive(t *testing.T, data []byte) (map[string][]byte, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = content
		names = append(names, f.Name)
	}
	return entries, names
}

func readManifest(t *testing.T, entries map[string][]byte) Summary {
	t.Helper()
	raw, ok := entries["metadata.json"]
	require.True(t, ok, "archive missing metadata.json")
	var summary Summary
	require.NoError(t, json.Unmarshal(raw, &summary))
	return summary
}

func TestComposeSplit(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	var buf bytes.Buffer
	summary, err := composer.Compose(context.Background(), &buf, items, Options{Strategy: StrategySplit})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 0, summary.Failed)

	entries, names := readArchive(t, buf.Bytes())
	assert.Len(t, entries, 4)
	assert.Contains(t, entries, "alice-tan-ct25-part-t1-000001.pdf")
	assert.Contains(t, entries, "bob-lim-ct25-part-t1-000002.pdf")
	assert.Contains(t, entries, "carol-wong-ct25-part-t1-000003.pdf")
	assert.Equal(t, "metadata.json", names[len(names)-1])

	for name, content := range entries {
		if strings.HasSuffix(name, ".pdf") {
			assert.True(t, bytes.HasPrefix(content, []byte("%PDF")), "entry %s is not a PDF", name)
		}
	}

	manifest := readManifest(t, entries)
	assert.Equal(t, 3, manifest.Total)
	for _, res := range manifest.Results {
		assert.Equal(t, resultIncluded, res.Status)
		assert.NotEmpty(t, res.Entry)
	}
}

func TestComposeSplitNameFallbacks(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	dir := t.TempDir()
	items := []Item{
		{Path: writePDF(t, dir, "1.pdf", "x"), RecipientName: "Amy Ong"},
		{Path: writePDF(t, dir, "2.pdf", "y"), SerialNumber: "CT25/GEN/T2/000007"},
		{Path: writePDF(t, dir, "3.pdf", "z")},
	}

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{Strategy: StrategySplit})
	require.NoError(t, err)

	entries, _ := readArchive(t, buf.Bytes())
	assert.Contains(t, entries, "amy-ong.pdf")
	assert.Contains(t, entries, "ct25-gen-t2-000007.pdf")
	assert.Contains(t, entries, "certificate-3.pdf")
}

func TestComposeSplitWithFolders(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{
		Strategy:  StrategySplit,
		FolderKey: func(it Item) string { return it.StateName },
	})
	require.NoError(t, err)

	entries, _ := readArchive(t, buf.Bytes())
	assert.Contains(t, entries, "selangor/alice-tan-ct25-part-t1-000001.pdf")
	assert.Contains(t, entries, "penang/bob-lim-ct25-part-t1-000002.pdf")
	assert.Contains(t, entries, "selangor/carol-wong-ct25-part-t1-000003.pdf")

	manifest := readManifest(t, entries)
	for _, res := range manifest.Results {
		assert.Contains(t, res.Entry, "/", "entry %s not inside a folder", res.Entry)
	}
}

func TestComposeMergeAll(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	var buf bytes.Buffer
	summary, err := composer.Compose(context.Background(), &buf, items, Options{Strategy: StrategyMergeAll})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Successful)

	entries, _ := readArchive(t, buf.Bytes())
	assert.Len(t, entries, 2)
	merged, ok := entries["certificates.pdf"]
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(merged, []byte("%PDF")))

	manifest := readManifest(t, entries)
	for _, res := range manifest.Results {
		assert.Equal(t, "certificates.pdf", res.Entry)
	}
}

func TestComposeMergeByGroup(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{
		Strategy: StrategyMergeByGroup,
		GroupKey: func(it Item) string { return it.ContingentName },
	})
	require.NoError(t, err)

	entries, _ := readArchive(t, buf.Bytes())
	assert.Len(t, entries, 3)
	assert.Contains(t, entries, "selangor.pdf")
	assert.Contains(t, entries, "penang.pdf")
}

func TestComposeMergeByGroupWithFolders(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{
		Strategy:  StrategyMergeByGroup,
		GroupKey:  func(it Item) string { return it.ContingentName },
		FolderKey: func(it Item) string { return it.StateName },
	})
	require.NoError(t, err)

	entries, _ := readArchive(t, buf.Bytes())
	assert.Contains(t, entries, "selangor/selangor.pdf")
	assert.Contains(t, entries, "penang/penang.pdf")
}

func TestComposeMergeEveryN(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	dir := t.TempDir()
	var items []Item
	for _, name := range []string{"One", "Two", "Three", "Four", "Five"} {
		items = append(items, Item{
			Path:          writePDF(t, dir, name+".pdf", name),
			RecipientName: name,
		})
	}

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{
		Strategy:    StrategyMergeEveryN,
		MergeEveryN: 2,
	})
	require.NoError(t, err)

	// Five inputs in chunks of two: three parts plus the manifest.
	entries, _ := readArchive(t, buf.Bytes())
	assert.Len(t, entries, 4)
	assert.Contains(t, entries, "certificates-part-001.pdf")
	assert.Contains(t, entries, "certificates-part-002.pdf")
	assert.Contains(t, entries, "certificates-part-003.pdf")
}

func TestComposeSkipsMissingFiles(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)
	items[1].Path = filepath.Join(t.TempDir(), "vanished.pdf")

	var buf bytes.Buffer
	summary, err := composer.Compose(context.Background(), &buf, items, Options{Strategy: StrategySplit})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)

	entries, _ := readArchive(t, buf.Bytes())
	assert.NotContains(t, entries, "bob-lim-ct25-part-t1-000002.pdf")

	manifest := readManifest(t, entries)
	assert.Equal(t, resultMissing, manifest.Results[1].Status)
	assert.Empty(t, manifest.Results[1].Entry)
}

func TestComposeNothingToArchive(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := []Item{{Path: filepath.Join(t.TempDir(), "gone.pdf"), RecipientName: "Ghost"}}

	var buf bytes.Buffer
	_, err := composer.Compose(context.Background(), &buf, items, Options{Strategy: StrategySplit})
	assert.ErrorIs(t, err, ErrNothingToArchive)
	assert.Zero(t, buf.Len(), "empty source set must not write anything")
}

func TestComposeInvalidOptions(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	cases := []Options{
		{Strategy: "staple_everything"},
		{Strategy: StrategyMergeEveryN, MergeEveryN: 0},
		{Strategy: StrategyMergeByGroup},
	}
	for _, opts := range cases {
		var buf bytes.Buffer
		_, err := composer.Compose(context.Background(), &buf, items, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
		assert.Zero(t, buf.Len(), "invalid options must not write anything")
	}
}

func TestComposeCancelled(t *testing.T) {
	composer := NewComposer(zap.NewNop())
	items := testItems(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := composer.Compose(ctx, &buf, items, Options{Strategy: StrategySplit})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Alice Tan":             "alice-tan",
		"Kuala   Lumpur":        "kuala-lumpur",
		"O'Brien & Sons (HQ)":   "obrien-sons-hq",
		"already-safe_name":     "already-safe_name",
		"  padded  ":            "padded",
		"UPPER CASE":            "upper-case",
		"symbols!@#$%^&*":       "symbols",
		"mixed 123 Numbers-ok_": "mixed-123-numbers-ok_",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), "input %q", in)
	}
}

// Guard against the fixture helper accidentally producing unreadable files.
func TestWritePDFHelper(t *testing.T) {
	path := writePDF(t, t.TempDir(), "x.pdf", "probe")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
