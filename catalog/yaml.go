package catalog

import (
	"bytes"
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/typedb"
)

type yamlFormat struct{}

func (yamlFormat) Name() string         { return "yaml" }
func (yamlFormat) Extensions() []string { return []string{".yaml", ".yml"} }

// Decode accepts a mapping with version and types keys, or a bare sequence
// of type entries.
func (yamlFormat) Decode(r io.Reader) (*typedb.RecordSet, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return &typedb.RecordSet{}, nil
		}
		return nil, err
	}

	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var doc document
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&doc.Types); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindMalformed).
			Detail("yaml catalog must be a mapping or a sequence, line %d", node.Line).
			Build()
	}
	return doc.records()
}

func (yamlFormat) Encode(w io.Writer, set *typedb.RecordSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fromRecords(set)); err != nil {
		return pkgerrors.Wrap(err, "encode yaml catalog")
	}
	return enc.Close()
}

// YAML returns a Source decoding YAML from r.
func YAML(r io.Reader) typedb.Source {
	return Reader(r, yamlFormat{})
}

// YAMLBytes returns a Source decoding an in-memory YAML document.
func YAMLBytes(data []byte) typedb.Source {
	return YAML(bytes.NewReader(data))
}

// YAMLFile returns a Source reading a YAML file.
func YAMLFile(path string) typedb.Source {
	return File(path, yamlFormat{})
}

// WriteYAMLFile writes set to path in the member-list encoding.
func WriteYAMLFile(path string, set *typedb.RecordSet) error {
	var buf bytes.Buffer
	if err := (yamlFormat{}).Encode(&buf, set); err != nil {
		return err
	}
	return pkgerrors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write %s", path)
}
