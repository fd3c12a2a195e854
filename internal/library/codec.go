package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metcalfc/leaf/internal/span"
)

// Version is the current on-disk shape of every stored value.
const Version = 1

const (
	schemaBooks      = "books"
	schemaComments   = "comments"
	schemaDictionary = "dictionary"
	schemaLastPage   = "last-page"
	schemaImport     = "import"
)

// Envelope wraps every stored value with its schema and version.
// Values written before envelopes existed are bare JSON and count as
// version 0.
type Envelope struct {
	Schema  string          `json:"schema"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func encode(schema string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Schema: schema, Version: Version, Data: data})
}

func asEnvelope(data []byte) (Envelope, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Schema == "" || env.Version < 1 {
		return Envelope{}, false
	}
	return env, true
}

// unwrap returns the payload and whether it came from a legacy value.
func unwrap(data []byte, schema string) (json.RawMessage, bool, error) {
	env, ok := asEnvelope(data)
	if !ok {
		return data, true, nil
	}
	if env.Schema != schema {
		return nil, false, fmt.Errorf("schema %q stored where %q expected", env.Schema, schema)
	}
	if env.Version > Version {
		return nil, false, fmt.Errorf("%s version %d is newer than supported version %d", schema, env.Version, Version)
	}
	return env.Data, false, nil
}

func decodeBooks(data []byte) ([]Book, bool, error) {
	payload, legacy, err := unwrap(data, schemaBooks)
	if err != nil {
		return nil, false, err
	}
	var books []Book
	if err := json.Unmarshal(payload, &books); err != nil {
		return nil, false, err
	}
	return books, legacy, nil
}

// legacyComment carries the note under "comment" as older values did.
type legacyComment struct {
	span.Comment
	Note string `json:"comment"`
}

func decodeComments(data []byte) ([]span.Comment, error) {
	payload, legacy, err := unwrap(data, schemaComments)
	if err != nil {
		return nil, err
	}
	if !legacy {
		var comments []span.Comment
		if err := json.Unmarshal(payload, &comments); err != nil {
			return nil, err
		}
		return comments, nil
	}

	var raw []legacyComment
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	comments := make([]span.Comment, 0, len(raw))
	for _, lc := range raw {
		c := lc.Comment
		if c.CommentText == "" {
			c.CommentText = lc.Note
		}
		if c.Color == "" {
			c.Color = span.DefaultCommentColor
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// legacyWord allows lastEdited to be missing or not a timestamp.
type legacyWord struct {
	span.DictionaryWord
	LastEdited string `json:"lastEdited"`
}

func decodeDictionary(data []byte) ([]span.DictionaryWord, error) {
	payload, legacy, err := unwrap(data, schemaDictionary)
	if err != nil {
		return nil, err
	}
	if !legacy {
		var words []span.DictionaryWord
		if err := json.Unmarshal(payload, &words); err != nil {
			return nil, err
		}
		return words, nil
	}

	var raw []legacyWord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	words := make([]span.DictionaryWord, 0, len(raw))
	for _, lw := range raw {
		w := lw.DictionaryWord
		if t, err := time.Parse(time.RFC3339, lw.LastEdited); err == nil {
			w.LastEdited = t
		}
		words = append(words, w)
	}
	return words, nil
}
