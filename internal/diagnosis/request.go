package diagnosis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultTopK = 5
	MinTopK     = 1
	MaxTopK     = 25
)

// Request is a validated diagnosis request.
type Request struct {
	Symptoms []string `json:"symptoms"`
	TopK     int      `json:"top_k"`
}

const requestSchemaURL = "schema://diagnosis-request.json"

var requestSchema = mustCompileRequestSchema()

func mustCompileRequestSchema() *jsonschema.Schema {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"symptoms": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"top_k": map[string]any{
				"type":    "integer",
				"minimum": MinTopK,
				"maximum": MaxTopK,
			},
		},
	}
	// The compiler wants plain JSON values, so round-trip the Go literal.
	raw, err := json.Marshal(def)
	if err != nil {
		panic(err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(requestSchemaURL, doc); err != nil {
		panic(err)
	}
	return c.MustCompile(requestSchemaURL)
}

// ParseRequest decodes a raw request body. A body that fails to decode is
// retried once after stripping a byte order mark and replacing invalid UTF-8.
func ParseRequest(body []byte) (Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Request{}, newError(KindInvalidPayload, "request body is empty")
	}
	v, err := decodeJSON(body)
	if err != nil {
		lossy, derr := unicode.UTF8BOM.NewDecoder().Bytes(body)
		if derr != nil {
			return Request{}, &Error{Kind: KindInvalidPayload, Msg: "request body is not valid JSON", Err: err}
		}
		if v, err = decodeJSON(lossy); err != nil {
			return Request{}, &Error{Kind: KindInvalidPayload, Msg: "request body is not valid JSON", Err: err}
		}
	}
	return NormalizeRequest(v)
}

func decodeJSON(body []byte) (any, error) {
	return jsonschema.UnmarshalJSON(bytes.NewReader(body))
}

// NormalizeRequest validates an already decoded payload. A one-element array
// holding an object is unwrapped, and "topK" is accepted when "top_k" is
// absent.
func NormalizeRequest(v any) (Request, error) {
	if list, ok := v.([]any); ok {
		if len(list) != 1 {
			return Request{}, newError(KindInvalidPayload, "array payload must hold exactly one object, got %d elements", len(list))
		}
		v = list[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Request{}, newError(KindInvalidPayload, "payload must be a JSON object")
	}

	if _, ok := obj["top_k"]; !ok {
		if alias, ok := obj["topK"]; ok {
			aliased := make(map[string]any, len(obj))
			for k, val := range obj {
				if k != "topK" {
					aliased[k] = val
				}
			}
			aliased["top_k"] = alias
			obj = aliased
		}
	}

	if err := requestSchema.Validate(obj); err != nil {
		return Request{}, &Error{Kind: KindValidation, Msg: "request does not match the expected schema", Err: err}
	}

	req := Request{TopK: DefaultTopK}
	if raw, ok := obj["top_k"]; ok {
		k, err := toInt(raw)
		if err != nil {
			return Request{}, &Error{Kind: KindValidation, Msg: "top_k must be an integer", Err: err}
		}
		req.TopK = k
	}
	if raw, ok := obj["symptoms"].([]any); ok {
		for _, item := range raw {
			s, _ := item.(string)
			s = strings.TrimSpace(norm.NFKC.String(s))
			if s != "" {
				req.Symptoms = append(req.Symptoms, s)
			}
		}
	}
	if len(req.Symptoms) == 0 {
		return Request{}, newError(KindEmptySymptomSet, "at least one symptom is required")
	}
	return req, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int(f), nil
}
