package qjs

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/marshal"
	"github.com/wippyai/jsbridge/value"
)

const tagKey = "@jsbridge"

const (
	tagObject    = "object"
	tagBinary    = "binary"
	tagNumber    = "number"
	tagDate      = "date"
	tagRegExp    = "regexp"
	tagAmbiguous = "ambiguous"
)

// codec converts between host values and the JSON wire form.
type codec struct {
	log  *zap.Logger
	opts marshal.Options
}

// encode renders v as JSON text for the script side.
func (c codec) encode(v value.Value) (string, error) {
	out, err := json.Marshal(c.wire(v))
	if err != nil {
		return "", errors.Wrap(errors.PhaseMarshal, errors.KindUnsupported, err, "encode "+v.Kind().String())
	}
	return string(out), nil
}

func (c codec) wire(v value.Value) any {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindInt:
		i, _ := v.AsInt()
		return i
	case value.KindDouble:
		f, _ := v.AsDouble()
		if s, ok := special(f); ok {
			return map[string]any{tagKey: tagNumber, "value": s}
		}
		return f
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindBinary:
		b, _ := v.AsBinary()
		data := make([]int, len(b))
		for i, x := range b {
			data[i] = int(x)
		}
		return map[string]any{tagKey: tagBinary, "data": data}
	case value.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = c.wire(item)
		}
		return out
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = c.wire(item)
		}
		return out
	case value.KindObject:
		id, _ := v.AsObject()
		return map[string]any{tagKey: tagObject, "id": uint64(id)}
	}
	return nil
}

// decodeList parses a JSON array of encoded script values.
func (c codec) decodeList(text string) ([]value.Value, error) {
	var raw []any
	if err := unmarshal(text, &raw); err != nil {
		return nil, err
	}
	out := make([]value.Value, len(raw))
	for i, r := range raw {
		out[i] = c.host(r)
	}
	return out, nil
}

// decode parses one encoded script value.
func (c codec) decode(text string) (value.Value, error) {
	var raw any
	if err := unmarshal(text, &raw); err != nil {
		return value.None(), err
	}
	return c.host(raw), nil
}

func unmarshal(text string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindInvalidInput, err, "decode script value")
	}
	return nil
}

func (c codec) host(raw any) value.Value {
	switch x := raw.(type) {
	case nil:
		return value.None()
	case bool:
		return value.Bool(x)
	case string:
		return value.String(x)
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return c.ambiguous("number", "unparsable number "+x.String())
		}
		return number(f)
	case map[string]any:
		tag, _ := x[tagKey].(string)
		return c.tagged(tag, x)
	case []any:
		return c.ambiguous("Array", "composite script values are not marshalled")
	}
	return c.ambiguous("unknown", "unrecognized wire value")
}

func (c codec) tagged(tag string, x map[string]any) value.Value {
	switch tag {
	case tagObject:
		n, _ := x["id"].(json.Number)
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return c.ambiguous("Object", "bad object id")
		}
		return value.Object(jsbridge.ObjectID(id))

	case tagBinary:
		items, _ := x["data"].([]any)
		data := make([]byte, 0, len(items))
		for _, item := range items {
			n, _ := item.(json.Number)
			b, err := strconv.ParseUint(n.String(), 10, 8)
			if err != nil {
				return c.ambiguous("ArrayBuffer", "bad byte")
			}
			data = append(data, byte(b))
		}
		return value.Binary(data)

	case tagNumber:
		s, _ := x["value"].(string)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c.ambiguous("number", "unparsable number "+s)
		}
		return number(f)

	case tagDate:
		if !c.opts.DateAllowed {
			return c.ambiguous("Date", "date conversion disabled")
		}
		n, _ := x["value"].(json.Number)
		f, err := n.Float64()
		if err != nil {
			return c.ambiguous("Date", "invalid date")
		}
		return value.Double(f)

	case tagRegExp:
		if !c.opts.RegExpAllowed {
			return c.ambiguous("RegExp", "regexp conversion disabled")
		}
		s, _ := x["value"].(string)
		return value.String(s)

	case tagAmbiguous:
		t, _ := x["type"].(string)
		return c.ambiguous(t, "composite script values are not marshalled")
	}
	return c.ambiguous("Object", "composite script values are not marshalled")
}

func (c codec) ambiguous(scriptType, detail string) value.Value {
	c.log.Debug("marshal ambiguous",
		zap.String("script_type", scriptType),
		zap.Error(errors.MarshalAmbiguous(scriptType, detail)))
	return value.None()
}

// special spells the numbers JSON cannot carry the way Number() parses
// them.
func special(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	case f == 0 && math.Signbit(f):
		return "-0", true
	}
	return "", false
}

// number applies the engine-neutral number rule: integral values in the
// int64 range become Int, everything else Double.
func number(f float64) value.Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !(f == 0 && math.Signbit(f)) {
		return value.Int(int64(f))
	}
	return value.Double(f)
}
