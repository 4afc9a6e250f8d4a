package catalog

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/typedb"
)

// Format decodes one on-disk encoding of a type record set.
type Format interface {
	Name() string
	// Extensions lists the file name suffixes the format claims, dot included.
	Extensions() []string
	Decode(r io.Reader) (*typedb.RecordSet, error)
}

// Encoder is implemented by formats that can also write record sets.
type Encoder interface {
	Encode(w io.Writer, set *typedb.RecordSet) error
}

type formatRegistry struct {
	mu      sync.RWMutex
	formats []Format
}

var registry = &formatRegistry{}

func init() {
	Register(yamlFormat{})
	Register(jsonFormat{})
	Register(witJSONFormat{})
}

// Register adds a format, replacing any format with the same name.
func Register(f Format) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for i, existing := range registry.formats {
		if existing.Name() == f.Name() {
			registry.formats[i] = f
			return
		}
	}
	registry.formats = append(registry.formats, f)
}

// Lookup returns the registered format with the given name.
func Lookup(name string) (Format, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	for _, f := range registry.formats {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Formats returns the names of all registered formats.
func Formats() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, len(registry.formats))
	for i, f := range registry.formats {
		names[i] = f.Name()
	}
	return names
}

// ForPath picks the format whose extension is the longest suffix of path.
func ForPath(path string) (Format, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	lower := strings.ToLower(path)
	var best Format
	bestLen := 0
	for _, f := range registry.formats {
		for _, ext := range f.Extensions() {
			if len(ext) > bestLen && strings.HasSuffix(lower, ext) {
				best, bestLen = f, len(ext)
			}
		}
	}
	return best, best != nil
}

// Open returns a Source reading path with the format chosen by its extension.
// The file is read when the source is loaded.
func Open(path string) typedb.Source {
	return typedb.SourceFunc(func(ctx context.Context) (*typedb.RecordSet, error) {
		f, ok := ForPath(path)
		if !ok {
			return nil, errors.New(errors.PhaseLoad, errors.KindMalformed).
				Value(path).
				Detail("no catalog format for %q", path).
				Build()
		}
		return File(path, f).Load(ctx)
	})
}

// File returns a Source reading path with the given format.
func File(path string, format Format) typedb.Source {
	return typedb.SourceFunc(func(ctx context.Context) (*typedb.RecordSet, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fh, err := os.Open(path)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil, errors.Missing(path, pkgerrors.Wrap(err, "open type file"))
			}
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindMalformed,
				pkgerrors.Wrapf(err, "open %s", path), "read type file")
		}
		defer fh.Close()

		set, err := format.Decode(fh)
		if err != nil {
			return nil, decodeError(format, path, err)
		}
		return set, nil
	})
}

// Reader returns a Source decoding r once with the given format.
func Reader(r io.Reader, format Format) typedb.Source {
	var (
		once sync.Once
		set  *typedb.RecordSet
		err  error
	)
	return typedb.SourceFunc(func(context.Context) (*typedb.RecordSet, error) {
		once.Do(func() {
			set, err = format.Decode(r)
			if err != nil {
				err = decodeError(format, "", err)
			}
		})
		return set, err
	})
}

// Static returns a Source yielding an in-memory record set.
func Static(set *typedb.RecordSet) typedb.Source {
	return typedb.Static(set)
}

func decodeError(format Format, path string, err error) error {
	var te *errors.Error
	if stderrors.As(err, &te) {
		return err
	}
	what := format.Name()
	if path != "" {
		what = path
	}
	return errors.Wrap(errors.PhaseLoad, errors.KindMalformed,
		pkgerrors.Wrapf(err, "decode %s", what), format.Name()+" catalog")
}
