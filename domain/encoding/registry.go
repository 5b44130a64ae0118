package encoding

import (
	"fmt"
	"sort"

	"cropyield/domain/core"
)

// Registry stores one independent encoder per categorical field.
type Registry struct {
	Encoders map[string]*Encoder
}

// NewRegistry builds a registry from already-fit encoders.
func NewRegistry(encoders ...*Encoder) (*Registry, error) {
	r := &Registry{Encoders: make(map[string]*Encoder, len(encoders))}
	for _, enc := range encoders {
		if enc == nil {
			return nil, fmt.Errorf("nil encoder")
		}
		if _, dup := r.Encoders[enc.Field]; dup {
			return nil, fmt.Errorf("duplicate encoder for field %s", enc.Field)
		}
		r.Encoders[enc.Field] = enc
	}
	return r, nil
}

// FitRegistry fits one encoder per field from column values.
func FitRegistry(columns map[string][]string) (*Registry, error) {
	fields := make([]string, 0, len(columns))
	for f := range columns {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	encoders := make([]*Encoder, 0, len(fields))
	for _, f := range fields {
		enc, err := Fit(f, columns[f])
		if err != nil {
			return nil, err
		}
		encoders = append(encoders, enc)
	}
	return NewRegistry(encoders...)
}

// Has reports whether field is categorical in this registry.
func (r *Registry) Has(field string) bool {
	_, ok := r.Encoders[field]
	return ok
}

// Encoder returns the encoder for field.
func (r *Registry) Encoder(field string) (*Encoder, bool) {
	enc, ok := r.Encoders[field]
	return enc, ok
}

// Encode looks up the code of value for field.
func (r *Registry) Encode(field, value string) (int, error) {
	enc, ok := r.Encoders[field]
	if !ok {
		return 0, core.NewSchemaMismatchError(field, "no encoder registered")
	}
	return enc.Encode(value)
}

// Decode maps a code back to its original string.
func (r *Registry) Decode(field string, code int) (string, error) {
	enc, ok := r.Encoders[field]
	if !ok {
		return "", core.NewSchemaMismatchError(field, "no encoder registered")
	}
	return enc.Decode(code)
}

// KnownValues returns the legal values for field in code order.
func (r *Registry) KnownValues(field string) ([]string, error) {
	enc, ok := r.Encoders[field]
	if !ok {
		return nil, core.NewSchemaMismatchError(field, "no encoder registered")
	}
	return enc.KnownValues(), nil
}

// Fields returns the encoded field names in sorted order.
func (r *Registry) Fields() []string {
	fields := make([]string, 0, len(r.Encoders))
	for f := range r.Encoders {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Domains returns field -> ordered values, for fingerprints and selection inputs.
func (r *Registry) Domains() map[string][]string {
	out := make(map[string][]string, len(r.Encoders))
	for f, enc := range r.Encoders {
		out[f] = enc.KnownValues()
	}
	return out
}

// Fingerprint hashes the full mapping; equal registries hash equal.
func (r *Registry) Fingerprint() core.Hash {
	return core.ComputeEncodingHash(r.Domains())
}

// Validate checks every encoder after the registry was decoded.
func (r *Registry) Validate() error {
	if r == nil || len(r.Encoders) == 0 {
		return fmt.Errorf("registry has no encoders")
	}
	for field, enc := range r.Encoders {
		if enc == nil {
			return fmt.Errorf("registry entry %s is nil", field)
		}
		if enc.Field != field {
			return fmt.Errorf("registry entry %s holds encoder for %s", field, enc.Field)
		}
		if err := enc.validate(); err != nil {
			return err
		}
	}
	return nil
}
