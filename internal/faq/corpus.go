// Package faq loads the read-only FAQ corpus the responder answers from.
package faq

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shank50/supportbotai/internal/domain"
)

//go:embed faqs.yaml
var defaultCorpus []byte

// Corpus is an ordered, immutable collection of FAQ records.
// It is safe for concurrent use.
type Corpus struct {
	faqs  []domain.FAQ
	index map[string]int
}

type corpusFile struct {
	FAQs []domain.FAQ `json:"faqs" yaml:"faqs"`
}

// Default returns the corpus compiled into the binary.
func Default() (*Corpus, error) {
	return parse(defaultCorpus, yaml.Unmarshal)
}

// Load reads a corpus from path. YAML and JSON files are accepted; an
// empty path yields the default corpus.
func Load(path string) (*Corpus, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read faq corpus: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parse(data, yaml.Unmarshal)
	case ".json":
		return parse(data, json.Unmarshal)
	default:
		return nil, fmt.Errorf("unsupported faq corpus format %q", filepath.Ext(path))
	}
}

// New builds a corpus from records, validating them.
func New(faqs []domain.FAQ) (*Corpus, error) {
	c := &Corpus{
		faqs:  make([]domain.FAQ, 0, len(faqs)),
		index: make(map[string]int, len(faqs)),
	}
	var errs []error
	for i, f := range faqs {
		f.ID = strings.TrimSpace(f.ID)
		switch {
		case f.ID == "":
			errs = append(errs, fmt.Errorf("faq #%d: id is required", i+1))
			continue
		case strings.TrimSpace(f.Question) == "":
			errs = append(errs, fmt.Errorf("faq %s: question is required", f.ID))
			continue
		case strings.TrimSpace(f.Answer) == "":
			errs = append(errs, fmt.Errorf("faq %s: answer is required", f.ID))
			continue
		}
		if _, dup := c.index[f.ID]; dup {
			errs = append(errs, fmt.Errorf("faq %s: duplicate id", f.ID))
			continue
		}
		c.index[f.ID] = len(c.faqs)
		c.faqs = append(c.faqs, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func parse(data []byte, unmarshal func([]byte, any) error) (*Corpus, error) {
	var file corpusFile
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse faq corpus: %w", err)
	}
	return New(file.FAQs)
}

// All returns a copy of the records in corpus order.
func (c *Corpus) All() []domain.FAQ {
	out := make([]domain.FAQ, len(c.faqs))
	copy(out, c.faqs)
	return out
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.faqs)
}

// Lookup resolves an FAQ by id. The returned record is a copy.
func (c *Corpus) Lookup(id string) (*domain.FAQ, bool) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	f := c.faqs[i]
	return &f, true
}
