package source

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// blobNamePattern matches spec.md §6's historical blob naming:
// "YYYY-MM-DD*<vehicle>.csv.gz". The vehicle id is the run of
// alphanumerics immediately preceding the extension.
var blobNamePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}.*?([A-Za-z0-9]+)\.csv\.gz$`)

// CSVDirReader watches a directory of gzip-compressed CSV blobs,
// backfilling existing files (oldest first) before switching to
// fsnotify-driven live ingestion of new ones. Grounded on the teacher's
// internal/ingest.FileWatcher (walk + fsnotify.Watcher + backfill-then-
// watch shape), generalized from trunk-recorder JSON call metadata to
// gzip CSV telemetry blobs.
type CSVDirReader struct {
	dir       string
	batchSize int
	log       zerolog.Logger
}

// NewCSVDirReader returns a reader over dir.
func NewCSVDirReader(dir string, batchSize int, log zerolog.Logger) *CSVDirReader {
	return &CSVDirReader{dir: dir, batchSize: batchSize, log: log.With().Str("component", "csvdir").Logger()}
}

// Read starts the backfill-then-watch loop and returns the row channel.
// The channel closes when ctx is cancelled or the watcher fails.
func (r *CSVDirReader) Read(ctx context.Context) (<-chan eke.RawRow, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan eke.RawRow, r.batchSize)
	go func() {
		defer close(out)
		defer watcher.Close()

		r.backfill(ctx, out)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !strings.HasSuffix(ev.Name, ".csv.gz") {
					continue
				}
				r.ingestFile(ctx, ev.Name, out)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Error().Err(err).Msg("fsnotify error")
			}
		}
	}()
	return out, nil
}

func (r *CSVDirReader) backfill(ctx context.Context, out chan<- eke.RawRow) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.log.Error().Err(err).Str("dir", r.dir).Msg("backfill directory listing failed")
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && blobNamePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // date-prefixed names sort chronologically

	r.log.Info().Int("files", len(names)).Msg("backfill starting")
	for _, name := range names {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.ingestFile(ctx, filepath.Join(r.dir, name), out)
	}
	r.log.Info().Msg("backfill complete")
}

func (r *CSVDirReader) ingestFile(ctx context.Context, path string, out chan<- eke.RawRow) {
	f, err := os.Open(path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to open blob")
		return
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to gunzip blob")
		return
	}
	defer gz.Close()

	vehicle := vehicleFromFilename(filepath.Base(path))
	rows, err := readCSVRows(gz, vehicle)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to parse blob CSV")
	}
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return
		case out <- row:
		}
	}
}

func vehicleFromFilename(name string) string {
	if m := blobNamePattern.FindStringSubmatch(name); len(m) == 2 {
		return m[1]
	}
	return ""
}
