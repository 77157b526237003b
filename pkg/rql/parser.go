// Package rql implements the Relational Query Language: a small
// s-expression dialect for asking a tensor graph questions.
//
// A query is one parenthesized form: a keyword followed by :key value pairs.
// Values are bare atoms or quoted strings (single or double quote, no escape
// sequences).
//
//	(Φ :intention "where do answers come from" :context dialogue-1)
//	(QUERY :from question :to insight :min_coherence 0.6)
//	(EXPLORE :entity question :depth 2)
//	(CONTEXT :keyword question)
//
// Φ and PHI are interchangeable; the executor resolves intention queries by
// keyword resonance against the graph.
package rql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Errors returned by parsing and execution.
var (
	// ErrValidation is returned for queries that do not parse.
	ErrValidation = errors.New("malformed query")
	// ErrUnknownQueryType is returned for an unrecognized keyword.
	ErrUnknownQueryType = errors.New("unknown query type")
	// ErrMissingParameter is returned when a required :key is absent.
	ErrMissingParameter = errors.New("missing parameter")
)

// Query kinds.
const (
	KindPhi     = "PHI"
	KindQuery   = "QUERY"
	KindExplore = "EXPLORE"
	KindContext = "CONTEXT"
)

// Query is one parsed RQL form.
type Query struct {
	Kind   string
	Params map[string]string
}

// Param returns the named parameter or an ErrMissingParameter error.
func (q *Query) Param(key string) (string, error) {
	v, ok := q.Params[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: :%s", ErrMissingParameter, key)
	}
	return v, nil
}

// Parse parses one RQL form.
func Parse(input string) (*Query, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) < 3 || tokens[0] != "(" || tokens[len(tokens)-1] != ")" {
		return nil, fmt.Errorf("%w: expected (KEYWORD :key value ...)", ErrValidation)
	}
	body := tokens[1 : len(tokens)-1]

	kind, err := normalizeKind(body[0])
	if err != nil {
		return nil, err
	}

	params := make(map[string]string)
	rest := body[1:]
	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("%w: dangling parameter key", ErrValidation)
	}
	for i := 0; i < len(rest); i += 2 {
		key := rest[i]
		if !strings.HasPrefix(key, ":") || len(key) < 2 {
			return nil, fmt.Errorf("%w: parameter keys start with ':', got %q", ErrValidation, key)
		}
		value := rest[i+1]
		if strings.HasPrefix(value, ":") || value == "(" || value == ")" {
			return nil, fmt.Errorf("%w: parameter :%s has no value", ErrValidation, key[1:])
		}
		params[key[1:]] = value
	}
	return &Query{Kind: kind, Params: params}, nil
}

func normalizeKind(keyword string) (string, error) {
	switch strings.ToUpper(keyword) {
	case "Φ", "PHI":
		return KindPhi, nil
	case "QUERY":
		return KindQuery, nil
	case "EXPLORE":
		return KindExplore, nil
	case "CONTEXT":
		return KindContext, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownQueryType, keyword)
	}
}

// tokenize splits the input into parens, atoms and the contents of quoted
// strings. Single and double quotes group whitespace; there is no escaping.
func tokenize(input string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				tokens = append(tokens, current.String())
				current.Reset()
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			flush()
			quote = r
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated string", ErrValidation)
	}
	flush()
	return tokens, nil
}
