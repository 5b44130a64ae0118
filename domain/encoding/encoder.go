// Package encoding holds the ordinal encoders that turn categorical strings
// into dense integer codes. Encoders are fit once per training run and are
// read-only afterwards; inference only ever looks codes up.
package encoding

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"cropyield/domain/core"
)

// OrderSorted assigns codes by byte-wise sorted value.
const OrderSorted = "sorted"

// Encoder is a bijection between the distinct values seen for one field and [0, k).
type Encoder struct {
	Field  string
	Values []string // code i maps to Values[i]
	Order  string

	once  sync.Once
	index map[string]int
}

// Fit builds an encoder from every observed value of a field. Blank values
// are ignored; codes follow sorted order so repeated fits agree.
func Fit(field string, values []string) (*Encoder, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("encoder field name cannot be empty")
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: field %s has no observed values", core.ErrEmptyDataset, field)
	}

	domain := make([]string, 0, len(seen))
	for v := range seen {
		domain = append(domain, v)
	}
	sort.Strings(domain)

	return &Encoder{Field: field, Values: domain, Order: OrderSorted}, nil
}

func (e *Encoder) buildIndex() {
	e.once.Do(func() {
		e.index = make(map[string]int, len(e.Values))
		for i, v := range e.Values {
			e.index[v] = i
		}
	})
}

// Encode returns the code of value, or an UnknownCategoryError. Matching is
// exact; callers trim surrounding whitespace where input enters the process.
func (e *Encoder) Encode(value string) (int, error) {
	e.buildIndex()
	code, ok := e.index[value]
	if !ok {
		return 0, core.NewUnknownCategoryError(e.Field, value)
	}
	return code, nil
}

// Decode returns the value that owns code.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Values) {
		return "", fmt.Errorf("field %s has no value for code %d", e.Field, code)
	}
	return e.Values[code], nil
}

// KnownValues returns the legal domain in code order.
func (e *Encoder) KnownValues() []string {
	out := make([]string, len(e.Values))
	copy(out, e.Values)
	return out
}

// Len returns the number of codes.
func (e *Encoder) Len() int { return len(e.Values) }

// validate checks the bijection after decode.
func (e *Encoder) validate() error {
	if len(e.Values) == 0 {
		return fmt.Errorf("encoder %s is empty", e.Field)
	}
	seen := make(map[string]bool, len(e.Values))
	for _, v := range e.Values {
		if seen[v] {
			return fmt.Errorf("encoder %s repeats value %q", e.Field, v)
		}
		seen[v] = true
	}
	return nil
}
