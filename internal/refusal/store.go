// Package refusal loads the refusal advice tree from declarative YAML
// documents and answers which questions and actions apply to a request.
package refusal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jjenkins/foirequests/internal/legislation"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a malformed advice document
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid refusal advice in %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Document is the raw content of one advice source
type Document struct {
	Name string
	Data []byte
}

// Section holds the questions and actions declared for one legislation
type Section struct {
	Questions []Question
	Actions   []Question
}

// Store indexes parsed advice by legislation key. It is immutable once
// built and safe for concurrent reads; the slices it returns must not be
// modified.
type Store struct {
	sections map[string]Section
}

// NewStore returns a store with no advice
func NewStore() *Store {
	return &Store{sections: map[string]Section{}}
}

// FromSources reads and parses the files at paths, in the given order
func FromSources(paths []string) (*Store, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read refusal advice %s: %w", p, err)
		}
		docs = append(docs, Document{Name: p, Data: data})
	}
	return Build(docs)
}

// Load fetches documents from each source in turn and builds a store
func Load(ctx context.Context, sources ...Source) (*Store, error) {
	var docs []Document
	for _, src := range sources {
		d, err := src.Documents(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d...)
	}
	return Build(docs)
}

// Build parses every document, then concatenates the results per
// legislation in document order. Any malformed document aborts the build.
func Build(docs []Document) (*Store, error) {
	parsed := make([]map[string]Section, 0, len(docs))
	for _, doc := range docs {
		p, err := parseDocument(doc)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}

	s := NewStore()
	for _, p := range parsed {
		// keys within one document are independent, but sort for determinism
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			sec := s.sections[k]
			sec.Questions = append(sec.Questions, p[k].Questions...)
			sec.Actions = append(sec.Actions, p[k].Actions...)
			s.sections[k] = sec
		}
	}
	return s, nil
}

// Questions returns the questions declared for a legislation key
func (s *Store) Questions(key string) []Question {
	q := s.sections[key].Questions
	return q[:len(q):len(q)]
}

// Actions returns the actions declared for a legislation key
func (s *Store) Actions(key string) []Question {
	a := s.sections[key].Actions
	return a[:len(a):len(a)]
}

// Legislations returns the keys that have advice, sorted
func (s *Store) Legislations() []string {
	keys := make([]string, 0, len(s.sections))
	for k := range s.sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two stores hold the same advice
func (s *Store) Equal(o *Store) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	keys := map[string]struct{}{}
	for k := range s.sections {
		keys[k] = struct{}{}
	}
	for k := range o.sections {
		keys[k] = struct{}{}
	}
	for k := range keys {
		if !EqualQuestions(s.Questions(k), o.Questions(k)) {
			return false
		}
		if !EqualQuestions(s.Actions(k), o.Actions(k)) {
			return false
		}
	}
	return true
}

type nodeDoc struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Target      map[string]string `yaml:"target"`
	Suggestions []nodeDoc         `yaml:"suggestions"`
}

type sectionDoc struct {
	Questions []nodeDoc `yaml:"questions"`
	Actions   []nodeDoc `yaml:"actions"`
}

func parseDocument(doc Document) (map[string]Section, error) {
	dec := yaml.NewDecoder(bytes.NewReader(doc.Data))
	dec.KnownFields(true)

	var raw map[string]sectionDoc
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]Section{}, nil
		}
		return nil, &ConfigError{Source: doc.Name, Err: err}
	}

	out := make(map[string]Section, len(raw))
	for key, sec := range raw {
		if _, ok := legislation.Find(key); !ok {
			return nil, &ConfigError{Source: doc.Name, Err: fmt.Errorf("unknown legislation %q", key)}
		}
		questions, err := convertNodes(sec.Questions, key+".questions")
		if err != nil {
			return nil, &ConfigError{Source: doc.Name, Err: err}
		}
		actions, err := convertNodes(sec.Actions, key+".actions")
		if err != nil {
			return nil, &ConfigError{Source: doc.Name, Err: err}
		}
		out[key] = Section{Questions: questions, Actions: actions}
	}
	return out, nil
}

func convertNodes(nodes []nodeDoc, path string) ([]Question, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]Question, 0, len(nodes))
	for i, n := range nodes {
		here := fmt.Sprintf("%s[%d]", path, i)
		if n.ID == "" && n.Title == "" {
			return nil, fmt.Errorf("%s: node needs an id or a title", here)
		}
		suggestions, err := convertNodes(n.Suggestions, here+".suggestions")
		if err != nil {
			return nil, err
		}
		out = append(out, Question{
			ID:          n.ID,
			Title:       n.Title,
			Target:      n.Target,
			Suggestions: suggestions,
		})
	}
	return out, nil
}
