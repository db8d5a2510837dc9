// Package record defines the wire format of a single resolver record and
// the normalize step that every source consumer applies before dispatch.
package record

import (
	"encoding/json"
	"fmt"
)

// Record is a single JSON object bound for the resolver. Keys are kept as
// a generic map so that arbitrary application fields survive round-trip
// unmodified; only DATA_SOURCE, RECORD_ID, ENTITY_TYPE and the directive
// key are ever inspected or mutated.
type Record map[string]any

const (
	KeyDataSource = "DATA_SOURCE"
	KeyRecordID   = "RECORD_ID"
	KeyEntityType = "ENTITY_TYPE"
)

// Unparsable is the literal data-source/record-id logged for a message
// body that could not be decoded as JSON at all.
const Unparsable = "unparsable"

// ParseBody decodes a message body into zero or more records. A JSON
// object decodes to a single-element slice; a JSON array decodes to one
// element per array entry, in order. Any other JSON value (string,
// number, bool, null) is rejected as poison input, same as bodies that
// fail to parse as JSON at all.
func ParseBody(body []byte) ([]Record, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	trimmed := skipWhitespace(probe)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message body")
	}

	switch trimmed[0] {
	case '{':
		var rec Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
		return []Record{rec}, nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		records := make([]Record, 0, len(raw))
		for i, elem := range raw {
			var rec Record
			if err := json.Unmarshal(elem, &rec); err != nil {
				return nil, fmt.Errorf("array element %d is not a JSON object: %w", i, err)
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("message body is neither a JSON object nor array")
	}
}

func skipWhitespace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return b[i:]
		}
	}
	return b[i:]
}

// StringField coerces a record field to a string, tolerating non-string
// JSON values (numbers, booleans) in compound key fields by formatting
// them. Absent fields return "".
func (r Record) StringField(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DataSource returns DATA_SOURCE, coerced to string.
func (r Record) DataSource() string { return r.StringField(KeyDataSource) }

// RecordID returns RECORD_ID, coerced to string. A record with no
// RECORD_ID still dispatches; the resolver accepts a null key.
func (r Record) RecordID() string { return r.StringField(KeyRecordID) }

// ApplyDefaults inserts the configured default DATA_SOURCE/ENTITY_TYPE
// when absent. It never overwrites an existing value.
func (r Record) ApplyDefaults(defaultDataSource, defaultEntityType string) {
	if _, ok := r[KeyDataSource]; !ok && defaultDataSource != "" {
		r[KeyDataSource] = defaultDataSource
	}
	if _, ok := r[KeyEntityType]; !ok && defaultEntityType != "" {
		r[KeyEntityType] = defaultEntityType
	}
}

// ExtractDirective removes directiveKey from the record, if present, and
// returns its raw value for the caller to interpret. ok is false if the
// key was absent.
func (r Record) ExtractDirective(directiveKey string) (raw any, ok bool) {
	v, present := r[directiveKey]
	if !present {
		return nil, false
	}
	delete(r, directiveKey)
	return v, true
}

// MarshalCanonical serializes the record with keys in sorted order
// (encoding/json sorts map keys ascending by default), matching the
// normalize contract's "serialize back to canonical JSON" requirement.
func (r Record) MarshalCanonical() ([]byte, error) {
	return json.Marshal(map[string]any(r))
}
