// Package loader retrieves spreadsheet sources over HTTP or from allow-listed
// local paths and memoizes the parsed datasets.
package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/internal/dataset"
)

// SourceValidator vets sources before any I/O. Implemented by security.Manager.
type SourceValidator interface {
	ValidateURL(raw string) (*url.URL, error)
	ValidateOpenPath(path string) (string, error)
}

// Gate bounds concurrent source loads (backed by runtime.Controller).
type Gate interface {
	AcquireLoad(ctx context.Context) error
	ReleaseLoad()
}

// Observer receives load outcomes, e.g. for metrics.
type Observer interface {
	ObserveLoad(kind SourceKind, cacheHit bool, elapsed time.Duration, err error)
	ObserveCacheSize(n int)
}

// Options configures a Loader. Validator is required; the rest have defaults.
type Options struct {
	Cache     *Cache
	Fetcher   *Fetcher
	Validator SourceValidator
	Gate      Gate
	Observer  Observer
	Schema    dataset.Schema
	MaxBytes  int64
}

// Loader turns a source reference into a memoized Dataset.
type Loader struct {
	cache     *Cache
	fetcher   *Fetcher
	validator SourceValidator
	gate      Gate
	observer  Observer
	schema    dataset.Schema
	maxBytes  int64
}

// New constructs a Loader.
func New(opts Options) *Loader {
	if opts.Cache == nil {
		opts.Cache = NewCache(0, 0, nil)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = config.DefaultMaxSourceBytes
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(nil, opts.MaxBytes)
	}
	return &Loader{
		cache:     opts.Cache,
		fetcher:   opts.Fetcher,
		validator: opts.Validator,
		gate:      opts.Gate,
		observer:  opts.Observer,
		schema:    opts.Schema,
		maxBytes:  opts.MaxBytes,
	}
}

// Cache exposes the underlying cache for lifecycle management.
func (l *Loader) Cache() *Cache { return l.cache }

// Get returns a previously loaded entry by its ID.
func (l *Loader) Get(id string) (*Entry, bool) {
	return l.cache.Get(id)
}

// Load returns the dataset for raw, fetching and parsing it on a cache miss.
// The boolean reports a cache hit. Failures are never cached.
func (l *Loader) Load(ctx context.Context, raw string) (*Entry, bool, error) {
	start := time.Now()
	src, err := l.resolve(raw)
	if err != nil {
		l.observe(SourceKind(""), false, start, err)
		return nil, false, err
	}

	e, hit, err := l.cache.GetOrLoad(ctx, src.Key, func(ctx context.Context) (*Entry, error) {
		return l.load(ctx, src)
	})
	l.observe(src.Kind, hit, start, err)

	logger := zerolog.Ctx(ctx)
	if err != nil {
		logger.Error().Err(err).Str("source", src.Key).Msg("load failed")
		return nil, false, err
	}
	logger.Debug().Str("source", src.Key).Str("dataset_id", e.ID).Bool("cache_hit", hit).Msg("dataset ready")
	return e, hit, nil
}

// resolve parses and validates raw. Local paths are canonicalized so that
// aliases share one cache entry.
func (l *Loader) resolve(raw string) (Source, error) {
	src, err := ParseSource(raw)
	if err != nil {
		return Source{}, err
	}
	switch src.Kind {
	case SourceRemote:
		if _, err := l.validator.ValidateURL(src.Key); err != nil {
			return Source{}, err
		}
	case SourceLocal:
		canonical, err := l.validator.ValidateOpenPath(src.Key)
		if err != nil {
			return Source{}, err
		}
		src.Key = canonical
	}
	return src, nil
}

func (l *Loader) load(ctx context.Context, src Source) (*Entry, error) {
	if l.gate != nil {
		if err := l.gate.AcquireLoad(ctx); err != nil {
			return nil, err
		}
		defer l.gate.ReleaseLoad()
	}

	start := time.Now()
	var (
		data []byte
		err  error
	)
	switch src.Kind {
	case SourceRemote:
		data, err = l.fetcher.Fetch(ctx, src.Key)
	default:
		data, err = l.readFile(src.Key)
	}
	if err != nil {
		return nil, err
	}

	format, header, rows, err := Decode(src.Name, data)
	if err != nil {
		return nil, err
	}
	opts := dataset.InferOptions{Numeric: []string{l.schema.Measure}}
	if l.schema.Date != "" {
		opts.Dates = []string{l.schema.Date}
	}
	ds := dataset.FromRows(header, rows, opts)

	zerolog.Ctx(ctx).Info().
		Str("source", src.Key).
		Str("format", string(format)).
		Int("bytes", len(data)).
		Int("rows", ds.Len()).
		Int("columns", len(ds.Columns)).
		Dur("elapsed", time.Since(start)).
		Msg("source loaded")

	return &Entry{
		ID:      uuid.NewString(),
		Source:  src,
		Format:  format,
		Dataset: ds,
	}, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loader: stat %q: %w", path, err)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size(), l.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}
	return data, nil
}

func (l *Loader) observe(kind SourceKind, hit bool, start time.Time, err error) {
	if l.observer == nil {
		return
	}
	l.observer.ObserveLoad(kind, hit, time.Since(start), err)
	l.observer.ObserveCacheSize(l.cache.Count())
}
