package aggregate

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator compares strings the way the application sorts them. The zero
// locale compares bytes, matching the C collation of most stores.
type Collator struct {
	locale string
	mu     sync.Mutex
	c      *collate.Collator
}

// ByteOrder returns a collator comparing raw bytes.
func ByteOrder() *Collator {
	return &Collator{}
}

// NewCollator builds a locale aware collator, e.g. "en" or "en-US". An
// empty locale yields byte order.
func NewCollator(locale string) (*Collator, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ByteOrder(), nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse collation locale %q: %w", locale, err)
	}
	return &Collator{locale: tag.String(), c: collate.New(tag)}, nil
}

// Locale returns the configured locale, empty for byte order.
func (c *Collator) Locale() string {
	if c == nil {
		return ""
	}
	return c.locale
}

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b string) int {
	if c == nil || c.c == nil {
		return strings.Compare(a, b)
	}
	// collate.Collator reuses internal buffers.
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.CompareString(a, b)
}
