package source

import (
	"bytes"
	"context"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Format identifies an image format recognized by the source.
type Format struct {
	Name       string
	Extensions []string
	MediaTypes []string
	magic      [][]byte
}

// IsUnknown reports whether the format is the unknown sentinel.
func (f Format) IsUnknown() bool {
	return f.Name == ""
}

// PreferredExtension returns the format's first extension, or "".
func (f Format) PreferredExtension() string {
	if len(f.Extensions) == 0 {
		return ""
	}
	return f.Extensions[0]
}

// FormatUnknown is returned when no tactic can identify the format.
var FormatUnknown = Format{}

var formats = []Format{
	{
		Name:       "JPEG",
		Extensions: []string{"jpg", "jpeg"},
		MediaTypes: []string{"image/jpeg"},
		magic:      [][]byte{{0xFF, 0xD8, 0xFF}},
	},
	{
		Name:       "PNG",
		Extensions: []string{"png"},
		MediaTypes: []string{"image/png"},
		magic:      [][]byte{{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	},
	{
		Name:       "GIF",
		Extensions: []string{"gif"},
		MediaTypes: []string{"image/gif"},
		magic:      [][]byte{[]byte("GIF87a"), []byte("GIF89a")},
	},
	{
		Name:       "TIFF",
		Extensions: []string{"tif", "tiff"},
		MediaTypes: []string{"image/tiff"},
		magic:      [][]byte{{'I', 'I', 0x2A, 0x00}, {'M', 'M', 0x00, 0x2A}},
	},
	{
		Name:       "WebP",
		Extensions: []string{"webp"},
		MediaTypes: []string{"image/webp"},
		// RIFF container; the format tag at offset 8 is checked separately.
		magic: [][]byte{[]byte("RIFF")},
	},
	{
		Name:       "BMP",
		Extensions: []string{"bmp"},
		MediaTypes: []string{"image/bmp", "image/x-bmp"},
		magic:      [][]byte{{'B', 'M'}},
	},
}

// magicReadLength is how many leading bytes the magic-byte tactic fetches.
const magicReadLength = 64

// FormatByExtension infers a format from the filename extension of name.
func FormatByExtension(name string) Format {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" {
		return FormatUnknown
	}
	for _, f := range formats {
		for _, candidate := range f.Extensions {
			if candidate == ext {
				return f
			}
		}
	}
	return FormatUnknown
}

// FormatByMediaType infers a format from a Content-Type header value.
// application/octet-stream is too generic to be useful and is ignored.
func FormatByMediaType(contentType string) Format {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		return FormatUnknown
	}
	for _, f := range formats {
		for _, candidate := range f.MediaTypes {
			if candidate == ct {
				return f
			}
		}
	}
	return FormatUnknown
}

// DetectFormat infers a format from the magic bytes at the start of an
// object.
func DetectFormat(head []byte) Format {
	for _, f := range formats {
		for _, m := range f.magic {
			if !bytes.HasPrefix(head, m) {
				continue
			}
			if f.Name == "WebP" {
				if len(head) >= 12 && bytes.Equal(head[8:12], []byte("WEBP")) {
					return f
				}
				continue
			}
			return f
		}
	}
	return FormatUnknown
}

// FormatStrategy is one stateless format-inference tactic. Tactics may
// issue network requests (the content-type and magic-byte checks do).
type FormatStrategy func(ctx context.Context) (Format, error)

// FormatIterator tries an ordered list of strategies, cheapest first. Each
// Next advances to the following tactic; errors are logged and yield
// FormatUnknown so the caller can keep probing.
type FormatIterator struct {
	strategies []FormatStrategy
	index      int
}

// NewFormatIterator builds an iterator over the given tactics.
func NewFormatIterator(strategies ...FormatStrategy) *FormatIterator {
	return &FormatIterator{strategies: strategies}
}

// HasNext reports whether an untried tactic remains.
func (it *FormatIterator) HasNext() bool {
	return it.index < len(it.strategies)
}

// Next runs the next tactic.
func (it *FormatIterator) Next(ctx context.Context) Format {
	if !it.HasNext() {
		return FormatUnknown
	}
	strategy := it.strategies[it.index]
	it.index++
	format, err := strategy(ctx)
	if err != nil {
		log.Warnf("format inference: %v", err)
		return FormatUnknown
	}
	return format
}
