package query

import (
	"fmt"
	"strings"
)

// Summary is a plain-value snapshot of a descriptor for logging, CLI output
// and golden comparison. The filter is reported by presence only.
type Summary struct {
	Kind            Kind   `json:"kind" yaml:"kind"`
	Cache           string `json:"cache" yaml:"cache"`
	ClassName       string `json:"class_name,omitempty" yaml:"class_name,omitempty"`
	Clause          string `json:"clause,omitempty" yaml:"clause,omitempty"`
	HasFilter       bool   `json:"has_filter" yaml:"has_filter"`
	IncludeMetadata bool   `json:"include_metadata" yaml:"include_metadata"`
	KeepPortable    bool   `json:"keep_portable" yaml:"keep_portable"`
}

// Summary returns the descriptor's summary.
func (d *Descriptor[R]) Summary() Summary {
	s := Summary{
		Kind:            d.kind,
		ClassName:       d.className,
		Clause:          d.clause,
		HasFilter:       d.filter != nil,
		IncludeMetadata: d.includeMetadata,
		KeepPortable:    d.keepPortable,
	}
	if d.cache != nil {
		s.Cache = d.cache.Name()
	}
	return s
}

// Map returns the summary as a map with snake_case keys, omitting empty text
// fields. Used for canonical JSON rendering.
func (s Summary) Map() map[string]any {
	m := map[string]any{
		"kind":             s.Kind.String(),
		"cache":            s.Cache,
		"has_filter":       s.HasFilter,
		"include_metadata": s.IncludeMetadata,
		"keep_portable":    s.KeepPortable,
	}
	if s.ClassName != "" {
		m["class_name"] = s.ClassName
	}
	if s.Clause != "" {
		m["clause"] = s.Clause
	}
	return m
}

// String renders the summary on one line, e.g.
//
//	full_text cache=people class=Person clause="age:30" keep_portable=false
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s cache=%s", s.Kind, s.Cache)
	if s.ClassName != "" {
		fmt.Fprintf(&b, " class=%s", s.ClassName)
	}
	if s.Clause != "" {
		fmt.Fprintf(&b, " clause=%q", s.Clause)
	}
	switch s.Kind {
	case KindSQLFields:
		fmt.Fprintf(&b, " include_metadata=%t", s.IncludeMetadata)
	case KindScan:
		fmt.Fprintf(&b, " has_filter=%t", s.HasFilter)
	}
	fmt.Fprintf(&b, " keep_portable=%t", s.KeepPortable)
	return b.String()
}
