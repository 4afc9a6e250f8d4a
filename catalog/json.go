package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	pkgerrors "github.com/pkg/errors"

	"github.com/wippyai/typeart-runtime/typedb"
)

type jsonFormat struct{}

func (jsonFormat) Name() string         { return "json" }
func (jsonFormat) Extensions() []string { return []string{".json"} }

func (jsonFormat) Decode(r io.Reader) (*typedb.RecordSet, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return &typedb.RecordSet{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc document
	dec := json.NewDecoder(br)
	if first == '[' {
		err = dec.Decode(&doc.Types)
	} else {
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, err
	}
	return doc.records()
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func (jsonFormat) Encode(w io.Writer, set *typedb.RecordSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return pkgerrors.Wrap(enc.Encode(fromRecords(set)), "encode json catalog")
}

// JSON returns a Source decoding JSON from r.
func JSON(r io.Reader) typedb.Source {
	return Reader(r, jsonFormat{})
}

// JSONBytes returns a Source decoding an in-memory JSON document.
func JSONBytes(data []byte) typedb.Source {
	return JSON(bytes.NewReader(data))
}

// JSONFile returns a Source reading a JSON file.
func JSONFile(path string) typedb.Source {
	return File(path, jsonFormat{})
}
