// ABOUTME: Lenient parsing of model replies into extraction records
// ABOUTME: Tries raw JSON, a fenced block, then the outermost object, and checks a schema
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/harperreed/kontakt/reconcile"
	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// ErrParse marks a reply that held no usable extraction record.
var ErrParse = eris.New("unparseable extraction response")

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	objectJSON = regexp.MustCompile(`(?s)\{.*\}`)
)

const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "first_name": {"type": ["string", "null"]},
    "last_name":  {"type": ["string", "null"]},
    "full_name":  {"type": ["string", "null"]},
    "company":    {"type": ["string", "null"]},
    "is_company": {"type": ["boolean", "null"]},
    "emails":     {"type": ["array", "null"], "items": {"type": "string"}},
    "phones":     {"type": ["array", "null"], "items": {"type": "string"}},
    "address": {
      "type": ["object", "null"],
      "properties": {
        "street":  {"type": ["string", "null"]},
        "street2": {"type": ["string", "null"]},
        "city":    {"type": ["string", "null"]},
        "zip":     {"type": ["string", "null"]},
        "state":   {"type": ["string", "null"]},
        "country": {"type": ["string", "null"]}
      }
    },
    "website":    {"type": ["string", "null"]},
    "position":   {"type": ["string", "null"]},
    "language":   {"type": ["string", "null"]},
    "categories": {"type": ["array", "null"], "items": {"type": "string"}},
    "biography":  {"type": ["string", "null"]},
    "confidence": {"type": ["string", "null"]}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

var (
	stringFields = []string{"first_name", "last_name", "full_name", "company", "website", "position", "language", "biography", "confidence"}
	listFields   = []string{"emails", "phones", "categories"}
)

// ParseResponse turns a model reply into an extraction record.
func ParseResponse(text string) (reconcile.ExtractionRecord, error) {
	var record reconcile.ExtractionRecord

	raw, ok := firstJSON(strings.TrimSpace(text))
	if !ok {
		return record, eris.Wrap(ErrParse, "no JSON object found")
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return record, eris.Wrap(ErrParse, "reply is not a JSON object")
	}
	coerce(obj)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(obj))
	if err != nil {
		return record, eris.Wrap(ErrParse, err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return record, eris.Wrapf(ErrParse, "schema violation: %s", strings.Join(msgs, "; "))
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return record, eris.Wrap(ErrParse, err.Error())
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, eris.Wrap(ErrParse, err.Error())
	}
	return record, nil
}

// firstJSON returns the first candidate that decodes as JSON.
func firstJSON(text string) (any, bool) {
	candidates := []string{text}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := objectJSON.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	for _, c := range candidates {
		var v any
		if err := json.Unmarshal([]byte(c), &v); err == nil {
			return v, true
		}
	}
	return nil, false
}

// coerce repairs the common type slips of model output in place: numbers
// where strings belong, a single string where a list belongs, and
// "true"/"false" strings for booleans.
func coerce(obj map[string]any) {
	for _, key := range stringFields {
		if v, ok := obj[key]; ok {
			obj[key] = scalarString(v)
		}
	}

	for _, key := range listFields {
		switch v := obj[key].(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				obj[key] = []any{}
			} else {
				obj[key] = []any{v}
			}
		case []any:
			for i, item := range v {
				v[i] = scalarString(item)
			}
		}
	}

	if s, ok := obj["is_company"].(string); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			obj["is_company"] = b
		} else {
			obj["is_company"] = nil
		}
	}

	switch addr := obj["address"].(type) {
	case string:
		obj["address"] = map[string]any{"street": addr}
	case map[string]any:
		for k, v := range addr {
			addr[k] = scalarString(v)
		}
	}
}

func scalarString(v any) any {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return v
	}
}
