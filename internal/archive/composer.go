package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

// Strategy selects how rendered certificates are laid out inside an archive.
type Strategy string

const (
	// StrategySplit puts each certificate in its own archive entry.
	StrategySplit Strategy = "split"
	// StrategyMergeAll concatenates every certificate into one document.
	StrategyMergeAll Strategy = "merge_all"
	// StrategyMergeByGroup produces one merged document per group key.
	StrategyMergeByGroup Strategy = "merge_by_group"
	// StrategyMergeEveryN produces merged documents of at most N inputs,
	// in input order.
	StrategyMergeEveryN Strategy = "merge_every_n"
)

var (
	// ErrInvalidOptions covers unknown strategies and missing strategy
	// parameters. Checked before any file is touched.
	ErrInvalidOptions = errors.New("invalid archive options")
	// ErrNothingToArchive is returned when no source file could be read.
	ErrNothingToArchive = errors.New("no certificate files to archive")
)

// Item is one certificate file plus the display fields entry names and the
// manifest are built from.
type Item struct {
	Path           string
	RecipientName  string
	ContingentName string
	StateName      string
	SerialNumber   string
}

// Options configures one composition. GroupKey is required for
// StrategyMergeByGroup, MergeEveryN for StrategyMergeEveryN. FolderKey,
// when set, places every entry inside a one-level subfolder named by the
// key of the entry's first item; it applies to all strategies.
type Options struct {
	Strategy    Strategy
	GroupKey    func(Item) string
	FolderKey   func(Item) string
	MergeEveryN int
	// Label seeds merged entry names; defaults to "certificates".
	Label string
}

// ItemResult is one item's row in the archive manifest.
type ItemResult struct {
	RecipientName string `json:"recipientName"`
	SerialNumber  string `json:"serialNumber,omitempty"`
	Entry         string `json:"entry,omitempty"`
	Status        string `json:"status"`
}

const (
	resultIncluded = "included"
	resultMissing  = "missing"
)

// Summary describes what went into the archive. It is also serialized as
// the final metadata.json entry so a downloaded archive is self-describing.
type Summary struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Strategy    Strategy     `json:"strategy"`
	Total       int          `json:"total"`
	Successful  int          `json:"successful"`
	Failed      int          `json:"failed"`
	Results     []ItemResult `json:"results"`
}

// Composer assembles zip archives of rendered certificates. Source files
// that have gone missing are skipped with a warning rather than failing the
// whole archive; only a fully empty source set is an error.
//
// Entries are streamed: split copies one file at a time into the zip, and
// merge strategies materialize one group at a time, so peak memory is one
// merge group rather than the whole archive.
type Composer struct {
	logger *zap.Logger
}

func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

// srcItem is an item that passed the pre-flight check, with its position in
// the input preserved for manifest updates.
type srcItem struct {
	Item
	idx int
}

type loadedItem struct {
	data []byte
	idx  int
}

// Compose writes a zip archive of items to w per the options and returns
// the manifest that was embedded in it. The archive is streamed; w should
// be the response writer or a file.
func (c *Composer) Compose(ctx context.Context, w io.Writer, items []Item, opts Options) (*Summary, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	label := opts.Label
	if label == "" {
		label = "certificates"
	}

	summary := &Summary{
		GeneratedAt: time.Now(),
		Strategy:    opts.Strategy,
		Total:       len(items),
		Results:     make([]ItemResult, len(items)),
	}

	// Pre-flight existence check only; file contents are read lazily as
	// each entry is written.
	included := make([]srcItem, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := ItemResult{RecipientName: item.RecipientName, SerialNumber: item.SerialNumber}
		if _, err := os.Stat(item.Path); err != nil {
			c.logger.Warn("certificate file unreadable, skipping",
				zap.String("path", item.Path),
				zap.Error(err))
			res.Status = resultMissing
			summary.Failed++
		} else {
			res.Status = resultIncluded
			summary.Successful++
			included = append(included, srcItem{Item: item, idx: i})
		}
		summary.Results[i] = res
	}
	if len(included) == 0 {
		return nil, ErrNothingToArchive
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	var err error
	switch opts.Strategy {
	case StrategySplit:
		err = c.writeSplit(ctx, zw, included, opts.FolderKey, summary)
	case StrategyMergeAll:
		name := entryName(opts.FolderKey, included[0].Item, sanitizeFileName(label)+".pdf")
		err = c.writeMergedGroup(ctx, zw, included, name, summary)
	case StrategyMergeByGroup:
		err = c.writeGroups(ctx, zw, included, opts.GroupKey, opts.FolderKey, summary)
	case StrategyMergeEveryN:
		err = c.writeChunks(ctx, zw, included, opts.MergeEveryN, opts.FolderKey, label, summary)
	}
	if err != nil {
		zw.Close()
		return nil, err
	}

	if err := writeManifest(zw, summary); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return summary, nil
}

func validateOptions(opts Options) error {
	switch opts.Strategy {
	case StrategySplit, StrategyMergeAll:
	case StrategyMergeByGroup:
		if opts.GroupKey == nil {
			return fmt.Errorf("%w: merge_by_group requires a group key", ErrInvalidOptions)
		}
	case StrategyMergeEveryN:
		if opts.MergeEveryN < 1 {
			return fmt.Errorf("%w: merge_every_n requires a positive chunk size", ErrInvalidOptions)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidOptions, opts.Strategy)
	}
	return nil
}

// entryName prefixes base with a one-level subfolder when a folder key is
// configured and yields a non-empty name for the item.
func entryName(folderKey func(Item) string, item Item, base string) string {
	if folderKey == nil {
		return base
	}
	folder := sanitizeFileName(folderKey(item))
	if folder == "" {
		return base
	}
	return folder + "/" + base
}

func (c *Composer) writeSplit(ctx context.Context, zw *zip.Writer, items []srcItem, folderKey func(Item) string, summary *Summary) error {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		base := sanitizeFileName(it.RecipientName)
		if id := sanitizeFileName(strings.ReplaceAll(it.SerialNumber, "/", "-")); id != "" {
			if base != "" {
				base += "-"
			}
			base += id
		}
		if base == "" {
			base = fmt.Sprintf("certificate-%d", it.idx+1)
		}
		name := entryName(folderKey, it.Item, base+".pdf")
		if err := c.copyEntry(zw, name, it, summary); err != nil {
			return err
		}
	}
	return nil
}

// copyEntry streams one source file into the archive. A file that vanished
// since pre-flight is downgraded to missing in the manifest.
func (c *Composer) copyEntry(zw *zip.Writer, name string, it srcItem, summary *Summary) error {
	f, err := os.Open(it.Path)
	if err != nil {
		c.markMissing(it, summary, err)
		return nil
	}
	defer f.Close()

	ew, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(ew, f); err != nil {
		return err
	}
	summary.Results[it.idx].Entry = name
	return nil
}

// writeGroups emits one merged document per group key, groups ordered by
// first appearance so archive layout follows input order.
func (c *Composer) writeGroups(ctx context.Context, zw *zip.Writer, items []srcItem, groupKey, folderKey func(Item) string, summary *Summary) error {
	var order []string
	groups := map[string][]srcItem{}
	for _, it := range items {
		k := groupKey(it.Item)
		if k == "" {
			k = "ungrouped"
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}

	seen := map[string]int{}
	for _, k := range order {
		group := groups[k]
		base := sanitizeFileName(k)
		if base == "" {
			base = "ungrouped"
		}
		seen[base]++
		if seen[base] > 1 {
			base = fmt.Sprintf("%s-%d", base, seen[base])
		}
		name := entryName(folderKey, group[0].Item, base+".pdf")
		if err := c.writeMergedGroup(ctx, zw, group, name, summary); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composer) writeChunks(ctx context.Context, zw *zip.Writer, items []srcItem, n int, folderKey func(Item) string, label string, summary *Summary) error {
	part := 0
	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}
		part++
		chunk := items[start:end]
		base := fmt.Sprintf("%s-part-%03d.pdf", sanitizeFileName(label), part)
		name := entryName(folderKey, chunk[0].Item, base)
		if err := c.writeMergedGroup(ctx, zw, chunk, name, summary); err != nil {
			return err
		}
	}
	return nil
}

// writeMergedGroup loads one group's files, merges them, and writes a single
// entry. Only the current group is held in memory.
func (c *Composer) writeMergedGroup(ctx context.Context, zw *zip.Writer, group []srcItem, name string, summary *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	loaded := make([]loadedItem, 0, len(group))
	for _, it := range group {
		data, err := os.ReadFile(it.Path)
		if err != nil {
			c.markMissing(it, summary, err)
			continue
		}
		loaded = append(loaded, loadedItem{data: data, idx: it.idx})
	}
	if len(loaded) == 0 {
		return nil
	}

	merged, err := mergePDFs(loaded)
	if err != nil {
		return err
	}
	if err := writeEntry(zw, name, merged); err != nil {
		return err
	}
	for _, li := range loaded {
		summary.Results[li.idx].Entry = name
	}
	return nil
}

func (c *Composer) markMissing(it srcItem, summary *Summary, err error) {
	c.logger.Warn("certificate file unreadable, skipping",
		zap.String("path", it.Path),
		zap.Error(err))
	summary.Results[it.idx].Status = resultMissing
	summary.Results[it.idx].Entry = ""
	summary.Successful--
	summary.Failed++
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	ew, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = ew.Write(data)
	return err
}

func writeManifest(zw *zip.Writer, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return writeEntry(zw, "metadata.json", data)
}

// mergePDFs concatenates the loaded documents in order. A single input is
// passed through untouched.
func mergePDFs(loaded []loadedItem) ([]byte, error) {
	if len(loaded) == 1 {
		return loaded[0].data, nil
	}
	readers := make([]io.ReadSeeker, len(loaded))
	for i, li := range loaded {
		readers[i] = bytes.NewReader(li.data)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var invalidFileChars = regexp.MustCompile(`[^a-z0-9\s\-_]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// sanitizeFileName lowercases, strips anything outside [a-z0-9 -_] and
// collapses whitespace runs to a single hyphen.
func sanitizeFileName(name string) string {
	s := strings.ToLower(name)
	s = invalidFileChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "-")
	return s
}
