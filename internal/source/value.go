package source

import (
	"maps"
	"strings"
)

// Kind distinguishes scalar from labeled values.
type Kind int

const (
	KindScalar Kind = iota
	KindLabeled
)

func (k Kind) String() string {
	if k == KindLabeled {
		return "labeled"
	}
	return "scalar"
}

// Value is the result of one successful collection.
type Value struct {
	Kind    Kind
	Scalar  float64
	Labeled map[string]float64 // label key -> value; see LabelKey
}

// Scalar wraps a single measurement.
func Scalar(v float64) Value { return Value{Kind: KindScalar, Scalar: v} }

// Labeled wraps a label-keyed set. The map is copied.
func Labeled(m map[string]float64) Value {
	cp := make(map[string]float64, len(m))
	maps.Copy(cp, m)
	return Value{Kind: KindLabeled, Labeled: cp}
}

// labelSep separates label values inside a label key. It cannot appear in valid UTF-8.
const labelSep = "\xff"

// LabelKey encodes an ordered label-value tuple. For a single label the key is the
// value itself, so LabelKey("SYSTEM") == "SYSTEM".
func LabelKey(values ...string) string { return strings.Join(values, labelSep) }

// LabelValues decodes a key produced by LabelKey.
func LabelValues(key string) []string { return strings.Split(key, labelSep) }
