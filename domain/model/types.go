package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

// Regressor is a trainable scalar estimator over fixed-width numeric rows.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Candidate is a named estimator configuration. New must return a fresh,
// unfit estimator with the same hyperparameters and seed on every call.
type Candidate struct {
	Name   string
	Params map[string]any
	New    func() Regressor
}

// PerformanceRecord holds held-out scores for one candidate. Scores are nil
// when the candidate could not be fit or scored; Warning says why.
type PerformanceRecord struct {
	ModelName string   `json:"model_name"`
	RSquared  *float64 `json:"r_squared"`
	RMSE      *float64 `json:"rmse"`
	Warning   string   `json:"warning,omitempty"`
}

// Scored reports whether the record carries usable scores.
func (p PerformanceRecord) Scored() bool {
	return p.RSquared != nil && p.RMSE != nil
}

// recordWire is the gob form of a PerformanceRecord. gob drops pointers to
// zero values, so presence is carried explicitly.
type recordWire struct {
	ModelName   string
	RSquared    float64
	RMSE        float64
	HasRSquared bool
	HasRMSE     bool
	Warning     string
}

// GobEncode implements gob.GobEncoder.
func (p PerformanceRecord) GobEncode() ([]byte, error) {
	w := recordWire{ModelName: p.ModelName, Warning: p.Warning}
	if p.RSquared != nil {
		w.RSquared, w.HasRSquared = *p.RSquared, true
	}
	if p.RMSE != nil {
		w.RMSE, w.HasRMSE = *p.RMSE, true
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("failed to encode performance record %s: %w", p.ModelName, err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (p *PerformanceRecord) GobDecode(data []byte) error {
	var w recordWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("failed to decode performance record: %w", err)
	}
	*p = PerformanceRecord{ModelName: w.ModelName, Warning: w.Warning}
	if w.HasRSquared {
		p.RSquared = Float(w.RSquared)
	}
	if w.HasRMSE {
		p.RMSE = Float(w.RMSE)
	}
	return nil
}

// PerformanceTable is an insertion-ordered mapping of model name to record.
type PerformanceTable struct {
	Records []PerformanceRecord `json:"records"`
}

// Add appends a record; names must be unique.
func (t *PerformanceTable) Add(rec PerformanceRecord) error {
	if _, ok := t.Get(rec.ModelName); ok {
		return fmt.Errorf("duplicate performance record for %s", rec.ModelName)
	}
	t.Records = append(t.Records, rec)
	return nil
}

// Get finds the record for a model name.
func (t PerformanceTable) Get(name string) (PerformanceRecord, bool) {
	for _, r := range t.Records {
		if r.ModelName == name {
			return r, true
		}
	}
	return PerformanceRecord{}, false
}

// Names returns model names in insertion order.
func (t PerformanceTable) Names() []string {
	names := make([]string, len(t.Records))
	for i, r := range t.Records {
		names[i] = r.ModelName
	}
	return names
}

// Best returns the scored record with the highest R-squared. Ties keep the
// first one encountered.
func (t PerformanceTable) Best() (PerformanceRecord, bool) {
	var best PerformanceRecord
	found := false
	for _, r := range t.Records {
		if !r.Scored() {
			continue
		}
		if !found || *r.RSquared > *best.RSquared {
			best = r
			found = true
		}
	}
	return best, found
}

// Champion is the fitted winner together with the feature order it was fit on.
type Champion struct {
	Name         string
	FeatureOrder []string
	Model        Regressor
	Score        PerformanceRecord
	TrainedAt    time.Time
	TrainRows    int
	HeldOutRows  int
}

// Predict scores a single aligned row.
func (c *Champion) Predict(row []float64) (float64, error) {
	if len(row) != len(c.FeatureOrder) {
		return 0, fmt.Errorf("row has %d values, model expects %d", len(row), len(c.FeatureOrder))
	}
	out, err := c.Model.Predict([][]float64{row})
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("model returned %d predictions for one row", len(out))
	}
	return out[0], nil
}

// Float returns a pointer to v, for building records.
func Float(v float64) *float64 { return &v }
