package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Record describes one captured screenshot as it appears in metadata.json.
type Record struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	TestClass     string `json:"testClass"`
	TestName      string `json:"testName"`
	TileWidth     int    `json:"tileWidth"`
	TileHeight    int    `json:"tileHeight"`
	ViewHierarchy string `json:"viewHierarchy,omitempty"`
	AxIssues      string `json:"axIssues,omitempty"`
	Error         string `json:"error,omitempty"`
	Group         string `json:"group,omitempty"`
	Extras        Extras `json:"extras,omitempty"`

	// ExplicitName is set when the caller chose Name rather than it being
	// derived from the test identity.
	ExplicitName bool `json:"-"`
}

// clone returns r with its own copy of Extras.
func (r Record) clone() Record {
	r.Extras = slices.Clone(r.Extras)
	return r
}

// Failed reports whether capture failed for this record.
func (r Record) Failed() bool {
	return r.Error != ""
}

type Extra struct {
	Key   string
	Value string
}

// Extras is a string map that keeps insertion order through JSON.
type Extras []Extra

// Set replaces the value of an existing key in place or appends a new one.
func (e Extras) Set(key string, value string) Extras {
	for i := range e {
		if e[i].Key == key {
			e[i].Value = value
			return e
		}
	}
	return append(e, Extra{Key: key, Value: value})
}

func (e Extras) Get(key string) (string, bool) {
	for _, x := range e {
		if x.Key == key {
			return x.Value, true
		}
	}
	return "", false
}

func (e Extras) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, x := range e {
		if i > 0 {
			buffer.WriteByte(',')
		}
		k, err := json.Marshal(x.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(x.Value)
		if err != nil {
			return nil, err
		}
		buffer.Write(k)
		buffer.WriteByte(':')
		buffer.Write(v)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

func (e *Extras) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extras must be a JSON object, got %v", token)
	}

	var extras Extras
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected extras key %v", token)
		}
		var value string
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode extra %s: %w", key, err)
		}
		extras = extras.Set(key, value)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}

	*e = extras
	return nil
}
