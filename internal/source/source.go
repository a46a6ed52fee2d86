package source

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"varcache/internal/objstore"
)

// Config holds the source-side settings consumed from the configuration
// surface.
type Config struct {
	// ChunkingEnabled selects windowed range reads over a spooled full
	// download.
	ChunkingEnabled bool
	// ChunkSize is the window size in bytes for windowed reads.
	ChunkSize int64
}

// Source maps logical identifiers to remote objects and opens seekable
// streams over them for random-access consumers (image decoders). It does
// not cache object bytes; that is the cache layer's concern.
type Source struct {
	registry *objstore.Registry
	lookup   Lookup
	fetcher  *RangeReader
	cfg      Config
}

// New builds a source resolving identifiers through lookup and clients
// through registry.
func New(registry *objstore.Registry, lookup Lookup, cfg Config) *Source {
	return &Source{
		registry: registry,
		lookup:   lookup,
		fetcher:  NewRangeReader(registry),
		cfg:      cfg,
	}
}

// Resolve maps the identifier to an object reference. The reference's
// length is not populated; use Stat for that.
func (s *Source) Resolve(ctx context.Context, identifier string) (*objstore.ObjectReference, error) {
	return s.lookup.Resolve(ctx, identifier)
}

// Stat returns the object's attributes. NotFound, AccessDenied, and
// configuration errors propagate to the caller.
func (s *Source) Stat(ctx context.Context, identifier string) (objstore.ObjectInfo, error) {
	ref, err := s.Resolve(ctx, identifier)
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	client, err := s.registry.ClientFor(ref)
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	info, err := client.Stat(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return objstore.ObjectInfo{}, fmt.Errorf("stat %s: %w", ref.Key, err)
	}
	return info, nil
}

// NewSeekableStream opens a random-access stream over the identifier's
// object. With chunking enabled the stream fetches fixed-size windows on
// demand; otherwise the full body is spooled to a temp file.
func (s *Source) NewSeekableStream(ctx context.Context, identifier string) (io.ReadSeekCloser, error) {
	ref, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !s.cfg.ChunkingEnabled {
		log.Debug("NewSeekableStream: chunking is disabled")
		return NewSpooledReader(ctx, s.registry, ref)
	}
	length, _, err := s.fetcher.HeadLength(ctx, ref)
	if err != nil {
		return nil, err
	}
	ref.Length = length
	log.Debugf("NewSeekableStream: using %d-byte windows", s.windowSize())
	return NewWindowedReader(ctx, s.fetcher, ref, s.windowSize())
}

// Formats returns an iterator over the format-inference tactics for the
// identifier, cheapest first: object-key extension, identifier extension,
// Content-Type header, then magic bytes via a ranged GET.
func (s *Source) Formats(ctx context.Context, identifier string) (*FormatIterator, error) {
	ref, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	keyCheck := func(context.Context) (Format, error) {
		return FormatByExtension(ref.Key), nil
	}
	identifierCheck := func(context.Context) (Format, error) {
		return FormatByExtension(identifier), nil
	}
	contentTypeCheck := func(ctx context.Context) (Format, error) {
		client, err := s.registry.ClientFor(ref)
		if err != nil {
			return FormatUnknown, err
		}
		info, err := client.Stat(ctx, ref.Bucket, ref.Key)
		if err != nil {
			return FormatUnknown, err
		}
		return FormatByMediaType(info.ContentType), nil
	}
	magicCheck := func(ctx context.Context) (Format, error) {
		head, err := s.fetcher.Fetch(ctx, ref, ByteRange{Start: 0, End: magicReadLength - 1})
		if err != nil {
			return FormatUnknown, err
		}
		return DetectFormat(head), nil
	}
	return NewFormatIterator(keyCheck, identifierCheck, contentTypeCheck, magicCheck), nil
}

func (s *Source) windowSize() int64 {
	if s.cfg.ChunkSize > 0 {
		return s.cfg.ChunkSize
	}
	return DefaultWindowSize
}
