// Package artifacts holds the envelope codec shared by every artifact
// store backend. Backends move opaque blobs; this package decides whether a
// set of blobs forms one consistent training run.
package artifacts

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"cropyield/domain/core"
	"cropyield/domain/encoding"
	"cropyield/domain/model"
	"cropyield/ports"

	// registers the concrete estimator types with gob
	_ "cropyield/adapters/regression"
)

// Envelope wraps one artifact payload with the identity of its run.
type Envelope struct {
	Name        string
	RunID       string
	Fingerprint string
	CreatedAt   time.Time
	Payload     []byte
}

// FileName is the blob name a backend uses for artifact name.
func FileName(name string) string {
	return name + ".gob"
}

// ValidateBundle checks a bundle is complete before it is published.
func ValidateBundle(b *ports.ArtifactBundle) error {
	if b == nil {
		return fmt.Errorf("nil artifact bundle")
	}
	if b.RunID.IsEmpty() {
		return fmt.Errorf("artifact bundle has no run id")
	}
	if err := b.Encoders.Validate(); err != nil {
		return fmt.Errorf("artifact bundle encoders: %w", err)
	}
	if b.Champion == nil || b.Champion.Model == nil {
		return fmt.Errorf("artifact bundle has no champion model")
	}
	if err := checkCoverage(b.Encoders, b.Champion); err != nil {
		return err
	}
	if _, ok := b.Performance.Get(b.Champion.Name); !ok {
		return fmt.Errorf("performance table has no row for champion %s", b.Champion.Name)
	}
	return nil
}

// EncodeBundle serializes a bundle into one blob per artifact name.
func EncodeBundle(b *ports.ArtifactBundle) (map[string][]byte, error) {
	if err := ValidateBundle(b); err != nil {
		return nil, err
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	fingerprint := b.Encoders.Fingerprint().String()

	payloads := map[string]any{
		ports.ArtifactEncoders:    b.Encoders,
		ports.ArtifactModel:       b.Champion,
		ports.ArtifactPerformance: b.Performance,
	}

	blobs := make(map[string][]byte, len(payloads))
	for _, name := range ports.ArtifactNames {
		var payload bytes.Buffer
		if err := gob.NewEncoder(&payload).Encode(payloads[name]); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		env := Envelope{
			Name:        name,
			RunID:       b.RunID.String(),
			Fingerprint: fingerprint,
			CreatedAt:   created,
			Payload:     payload.Bytes(),
		}
		var out bytes.Buffer
		if err := gob.NewEncoder(&out).Encode(env); err != nil {
			return nil, fmt.Errorf("failed to encode %s envelope: %w", name, err)
		}
		blobs[name] = out.Bytes()
	}
	return blobs, nil
}

// DecodeBundle rebuilds a bundle from blobs keyed by artifact name. It fails
// with an ArtifactMismatchError unless all three artifacts are present and
// belong to the same run.
func DecodeBundle(blobs map[string][]byte) (*ports.ArtifactBundle, error) {
	var missing []string
	for _, name := range ports.ArtifactNames {
		if _, ok := blobs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewMissingArtifactsError(missing...)
	}

	envs := make(map[string]Envelope, len(ports.ArtifactNames))
	for _, name := range ports.ArtifactNames {
		var env Envelope
		if err := gob.NewDecoder(bytes.NewReader(blobs[name])).Decode(&env); err != nil {
			return nil, core.NewArtifactMismatchError("artifact %s is unreadable: %v", name, err)
		}
		if env.Name != name {
			return nil, core.NewArtifactMismatchError("artifact %s holds %s", name, env.Name)
		}
		envs[name] = env
	}

	first := envs[ports.ArtifactEncoders]
	for _, name := range ports.ArtifactNames[1:] {
		env := envs[name]
		if env.RunID != first.RunID {
			return nil, core.NewArtifactMismatchError("artifact %s is from run %s, %s is from run %s",
				name, env.RunID, ports.ArtifactEncoders, first.RunID)
		}
		if env.Fingerprint != first.Fingerprint {
			return nil, core.NewArtifactMismatchError("artifact %s was fit against different encoders", name)
		}
	}

	registry := &encoding.Registry{}
	if err := decodePayload(envs[ports.ArtifactEncoders], registry); err != nil {
		return nil, err
	}
	if err := registry.Validate(); err != nil {
		return nil, core.NewArtifactMismatchError("encoders: %v", err)
	}
	if registry.Fingerprint().String() != first.Fingerprint {
		return nil, core.NewArtifactMismatchError("encoders do not match their recorded fingerprint")
	}

	champion := &model.Champion{}
	if err := decodePayload(envs[ports.ArtifactModel], champion); err != nil {
		return nil, err
	}
	if champion.Model == nil {
		return nil, core.NewArtifactMismatchError("artifact %s has no model", ports.ArtifactModel)
	}
	if err := checkCoverage(registry, champion); err != nil {
		return nil, core.NewArtifactMismatchError("%v", err)
	}

	var table model.PerformanceTable
	if err := decodePayload(envs[ports.ArtifactPerformance], &table); err != nil {
		return nil, err
	}

	runID, err := core.ParseRunID(first.RunID)
	if err != nil {
		return nil, core.NewArtifactMismatchError("%v", err)
	}
	return &ports.ArtifactBundle{
		RunID:       runID,
		Encoders:    registry,
		Champion:    champion,
		Performance: table,
		CreatedAt:   first.CreatedAt,
	}, nil
}

// RunIDOf reads only the run id of an encoded artifact.
func RunIDOf(blob []byte) (string, error) {
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&env); err != nil {
		return "", err
	}
	return env.RunID, nil
}

func decodePayload(env Envelope, into any) error {
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(into); err != nil {
		return core.NewArtifactMismatchError("artifact %s payload is unreadable: %v", env.Name, err)
	}
	return nil
}

// checkCoverage requires every encoded field to be a model feature.
func checkCoverage(reg *encoding.Registry, champion *model.Champion) error {
	features := make(map[string]bool, len(champion.FeatureOrder))
	for _, f := range champion.FeatureOrder {
		features[f] = true
	}
	for _, f := range reg.Fields() {
		if !features[f] {
			return fmt.Errorf("encoded field %s is not in the model feature order", f)
		}
	}
	return nil
}
