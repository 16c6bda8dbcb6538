package pygwas

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 whose JSON encoding replaces NaN and infinities with
// zero.  PyGWAS leaves NaN in LD matrices wherever a SNP is monomorphic in the
// selected accessions, and encoding/json refuses to encode those.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("0"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.  A JSON null decodes as NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, null) {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

var (
	null        = []byte("null")
	nan         = []byte("NaN")
	infinity    = []byte("Infinity")
	negInfinity = []byte("-Infinity")
)

// rewriteNonFinite replaces the bare NaN, Infinity and -Infinity tokens that
// Python's json module emits with null so that the document can be decoded.
// Text inside strings is left untouched.
func rewriteNonFinite(b []byte) []byte {
	out := make([]byte, 0, len(b))
	var inString, escaped bool
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		var token []byte
		switch {
		case c == '"':
			inString = true
		case bytes.HasPrefix(b[i:], nan):
			token = nan
		case bytes.HasPrefix(b[i:], negInfinity):
			token = negInfinity
		case bytes.HasPrefix(b[i:], infinity):
			token = infinity
		}
		if token != nil {
			out = append(out, null...)
			i += len(token) - 1
			continue
		}
		out = append(out, c)
	}
	return out
}

// decode unmarshals PyGWAS output into v.
func decode(data []byte, v interface{}) error {
	return json.Unmarshal(rewriteNonFinite(data), v)
}
