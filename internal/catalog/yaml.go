package catalog

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Queries []yaml.Node `yaml:"queries"`
}

type yamlQuery struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Class    string         `yaml:"class"`
	Clause   string         `yaml:"clause"`
	Metadata bool           `yaml:"metadata"`
	Filter   map[string]any `yaml:"filter"`
}

// ParseYAML parses a YAML catalog: a "queries" sequence of definitions, each
// with its own name.
//
//	queries:
//	  - name: adults
//	    kind: scan
//	    filter: {age: 30}
func ParseYAML(file string, data []byte) (*Catalog, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), File: file}
	}

	raws := make([]raw, 0, len(doc.Queries))
	for i := range doc.Queries {
		node := &doc.Queries[i]

		var q yamlQuery
		if err := node.Decode(&q); err != nil {
			return nil, &LoadError{
				Code:    ErrCodeParseFailed,
				Message: err.Error(),
				File:    file,
				Line:    node.Line,
				Column:  node.Column,
			}
		}
		raws = append(raws, raw{
			Name:     q.Name,
			Kind:     q.Kind,
			Class:    q.Class,
			Clause:   q.Clause,
			Metadata: q.Metadata,
			Filter:   q.Filter,
			Line:     node.Line,
			Column:   node.Column,
		})
	}

	return assemble(file, raws)
}
