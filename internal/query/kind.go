package query

import "fmt"

// Kind identifies the shape of a query.
type Kind uint8

const (
	// KindUnknown is the zero value. The facade never produces it.
	KindUnknown Kind = iota
	// KindSQLFields projects fields with a SQL clause.
	KindSQLFields
	// KindFullText searches values of one type for a text expression.
	KindFullText
	// KindScan iterates entries, optionally filtered by a predicate.
	KindScan
	// KindSPI is delegated to a pluggable indexing provider.
	KindSPI
)

var kindNames = map[Kind]string{
	KindSQLFields: "sql_fields",
	KindFullText:  "full_text",
	KindScan:      "scan",
	KindSPI:       "spi",
}

// Kinds lists every valid kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindSQLFields, KindFullText, KindScan, KindSPI}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the four query kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a kind name ("sql_fields", "full_text", "scan", "spi")
// to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown query kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal query kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
