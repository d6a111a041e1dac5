// Package curriculum holds the immutable topic catalog. Topics are loaded
// once at startup from YAML and never mutated afterwards.
package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog is the loaded, validated topic sequence.
type Catalog struct {
	bySlug  map[string]Topic
	byOrder map[int]Topic
	ordered []Topic
}

// LoadCatalog reads the topic catalog from a YAML file and validates it:
// slugs are unique and orders form exactly 1..N with no gaps.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var doc struct {
		Topics []Topic `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c, err := NewCatalog(doc.Topics)
	if err != nil {
		return nil, err
	}

	slog.Info("curriculum catalog loaded", "topics", len(doc.Topics), "path", path)
	return c, nil
}

// NewCatalog builds a catalog from an in-memory topic list, applying the
// same validation as LoadCatalog.
func NewCatalog(topics []Topic) (*Catalog, error) {
	c := &Catalog{
		bySlug:  make(map[string]Topic, len(topics)),
		byOrder: make(map[int]Topic, len(topics)),
	}

	for _, t := range topics {
		if t.Slug == "" {
			return nil, fmt.Errorf("topic with order %d has empty slug", t.Order)
		}
		if _, dup := c.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("duplicate topic slug %q", t.Slug)
		}
		if _, dup := c.byOrder[t.Order]; dup {
			return nil, fmt.Errorf("duplicate topic order %d (%q)", t.Order, t.Slug)
		}
		for i, content := range t.Contents {
			if err := content.Validate(); err != nil {
				return nil, fmt.Errorf("topic %q content %d: %w", t.Slug, i, err)
			}
		}
		c.bySlug[t.Slug] = t
		c.byOrder[t.Order] = t
	}

	// Orders must form a strict linear sequence 1..N.
	for i := 1; i <= len(topics); i++ {
		if _, ok := c.byOrder[i]; !ok {
			return nil, fmt.Errorf("topic order sequence has a gap at %d", i)
		}
	}

	c.ordered = append(c.ordered, topics...)
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Order < c.ordered[j].Order })

	return c, nil
}

// Topic returns a topic by slug.
func (c *Catalog) Topic(slug string) (Topic, bool) {
	t, ok := c.bySlug[slug]
	return t, ok
}

// TopicByOrder returns the topic at a given position in the sequence.
func (c *Catalog) TopicByOrder(order int) (Topic, bool) {
	t, ok := c.byOrder[order]
	return t, ok
}

// Topics returns all topics in sequence order.
func (c *Catalog) Topics() []Topic {
	return append([]Topic{}, c.ordered...)
}

// Len returns the number of topics in the catalog.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
