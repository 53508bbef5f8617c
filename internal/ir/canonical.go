package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing and golden
// snapshots. This is the ONLY serialization used for content-addressed
// identity and trace comparison.
//
// Differences from encoding/json defaults:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & stay literal)
//  3. Strings are NFC normalized
//  4. Floats and null are rejected
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case MVarID:
		return []byte(fmt.Sprintf("%d", int64(val))), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// RFC 8785: sort keys by UTF-16 code units.
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("object key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// lessUTF16 compares strings by their UTF-16 code unit sequences.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization and without HTML escaping. U+2028/U+2029 stay literal per
// RFC 8785 even though encoding/json escapes them by default.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators rewrites   and   escapes back to literal
// characters. A sequence preceded by an odd number of backslashes is a
// literal backslash-u in the source text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	var out []byte
	for i := 0; i < len(data); {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, " "...)
				} else {
					out = append(out, " "...)
				}
				i += 6
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}

// TermCanonical converts a term to its canonical map form.
func TermCanonical(t Term) map[string]any {
	switch x := t.(type) {
	case Const:
		return map[string]any{"kind": "const", "name": x.Name}
	case Bound:
		return map[string]any{"kind": "bound", "name": x.Name}
	case MVar:
		return map[string]any{"kind": "mvar", "id": int64(x.ID)}
	default:
		return map[string]any{"kind": "unknown"}
	}
}

// FormulaCanonical converts a formula to its canonical map form.
func FormulaCanonical(f Formula) map[string]any {
	switch x := f.(type) {
	case True:
		return map[string]any{"kind": "true"}
	case False:
		return map[string]any{"kind": "false"}
	case Atom:
		args := make([]any, len(x.Args))
		for i, t := range x.Args {
			args[i] = TermCanonical(t)
		}
		m := map[string]any{"kind": "atom", "pred": x.Pred}
		if len(args) > 0 {
			m["args"] = args
		}
		return m
	case And:
		return map[string]any{"kind": "and", "left": FormulaCanonical(x.Left), "right": FormulaCanonical(x.Right)}
	case Or:
		return map[string]any{"kind": "or", "left": FormulaCanonical(x.Left), "right": FormulaCanonical(x.Right)}
	case Implies:
		return map[string]any{"kind": "implies", "left": FormulaCanonical(x.Left), "right": FormulaCanonical(x.Right)}
	case Not:
		return map[string]any{"kind": "not", "body": FormulaCanonical(x.Body)}
	case Exists:
		return map[string]any{"kind": "exists", "binder": x.Binder, "body": FormulaCanonical(x.Body)}
	default:
		return map[string]any{"kind": "unknown"}
	}
}

// SequentCanonical converts a sequent to its canonical map form.
func SequentCanonical(s Sequent) map[string]any {
	hyps := make([]any, len(s.Hyps))
	for i, h := range s.Hyps {
		hyps[i] = FormulaCanonical(h)
	}
	return map[string]any{
		"hyps":   hyps,
		"target": FormulaCanonical(s.Target),
	}
}

// CertCanonical converts a certificate to its canonical map form.
func CertCanonical(c Cert) map[string]any {
	switch x := c.(type) {
	case HypCert:
		return map[string]any{"kind": "hyp", "index": int64(x.Index)}
	case TrueIntroCert:
		return map[string]any{"kind": "true_intro"}
	case AndIntroCert:
		return map[string]any{"kind": "and_intro", "left": CertCanonical(x.Left), "right": CertCanonical(x.Right)}
	case OrLeftCert:
		return map[string]any{"kind": "or_left", "proof": CertCanonical(x.Proof)}
	case OrRightCert:
		return map[string]any{"kind": "or_right", "proof": CertCanonical(x.Proof)}
	case ImpIntroCert:
		return map[string]any{"kind": "imp_intro", "body": CertCanonical(x.Body)}
	case FalseElimCert:
		return map[string]any{"kind": "false_elim", "index": int64(x.HypIndex)}
	case ExistsIntroCert:
		return map[string]any{"kind": "exists_intro", "witness": TermCanonical(x.Witness), "body": CertCanonical(x.Body)}
	case NormCert:
		return map[string]any{"kind": "norm", "rule": x.Rule, "inner": CertCanonical(x.Inner)}
	default:
		return map[string]any{"kind": "unknown"}
	}
}
