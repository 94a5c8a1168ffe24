// Package format provides the codec registry that maps tabular file-format
// names to reader/writer pairs.
//
// Formats are looked up by lowercase name ("csv", "parquet", ...). A Codec
// may carry only one direction; asking for the missing half returns a typed
// error naming the read_<format> or to_<format> convention so callers can
// tell exactly which half was absent. Built-in codecs register themselves
// in this package's init functions; external packages may Register more.
package format

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapdata/pkg/table"
)

// ReadFunc decodes one table from r. The options map carries codec-specific
// settings (see each codec's option struct).
type ReadFunc func(r io.Reader, opts map[string]any) (*table.Table, error)

// WriteFunc encodes t onto w.
type WriteFunc func(w io.Writer, t *table.Table, opts map[string]any) error

// Codec bundles both directions of a format. Either half may be nil when
// the format supports only one direction.
type Codec struct {
	Read  ReadFunc
	Write WriteFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

// Register adds a codec under the given format name. Names are normalized
// to lowercase. Registering an existing name replaces it, which is how
// callers override a built-in codec.
func Register(name string, codec Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[Normalize(name)] = codec
}

// Normalize lowercases and trims a format name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup retrieves the codec registered under name.
func Lookup(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[Normalize(name)]
	return c, ok
}

// IsRegistered checks whether any codec is registered under name.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Reader returns the read half of the codec for name. A missing codec or a
// write-only codec yields a *ReaderNotFoundError.
func Reader(name string) (ReadFunc, error) {
	c, ok := Lookup(name)
	if !ok || c.Read == nil {
		return nil, &ReaderNotFoundError{Format: Normalize(name), Available: readable()}
	}
	return c.Read, nil
}

// Writer returns the write half of the codec for name. A missing codec or a
// read-only codec yields a *WriterNotFoundError.
func Writer(name string) (WriteFunc, error) {
	c, ok := Lookup(name)
	if !ok || c.Write == nil {
		return nil, &WriterNotFoundError{Format: Normalize(name), Available: writable()}
	}
	return c.Write, nil
}

// Formats returns all registered format names (sorted).
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readable() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name, c := range registry {
		if c.Read != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func writable() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name, c := range registry {
		if c.Write != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ReaderNotFoundError is returned when no read half exists for a format.
type ReaderNotFoundError struct {
	Format    string
	Available []string
}

func (e *ReaderNotFoundError) Error() string {
	return fmt.Sprintf("unable to resolve read_%s: no reader registered for format %q\nReadable formats: %v\nHint: check the file_format parameter or register a codec for it", e.Format, e.Format, e.Available)
}

// WriterNotFoundError is returned when no write half exists for a format.
type WriterNotFoundError struct {
	Format    string
	Available []string
}

func (e *WriterNotFoundError) Error() string {
	return fmt.Sprintf("unable to resolve to_%s: no writer registered for format %q\nWritable formats: %v\nHint: check the file_format parameter or register a codec for it", e.Format, e.Format, e.Available)
}

// DecodeOptions fills a codec option struct from a loosely typed option
// map. Unknown keys are an error so misspelled options fail loudly; fields
// absent from the map keep the defaults pre-set on target.
func DecodeOptions(opts map[string]any, target any) error {
	if len(opts) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "koanf",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build options decoder: %w", err)
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("invalid format options: %w", err)
	}
	return nil
}
