// Package classifier scores feature vectors with an ensemble of two
// independently trained models and decodes the result into a stress label.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// FeatureCount is the width of the model input vector.
const FeatureCount = 6

// ErrFeatureCount is returned when a vector of the wrong width is scored.
var ErrFeatureCount = errors.New("classifier: feature vector must have 6 values")

// Model is a trained classifier. Predict returns a class id, possibly
// fractional for regressors; features are already scaled.
type Model interface {
	Name() string
	Predict(ctx context.Context, features []float64) (float64, error)
}

// Result is the outcome of scoring one vector.
type Result struct {
	ClassID     int
	Label       string
	Fallback    bool
	Warning     string
	Predictions []float64
}

// Ensemble averages the predictions of its models.
type Ensemble struct {
	scaler  *Scaler
	models  []Model
	decoder *LabelDecoder
}

// NewEnsemble builds an ensemble. A nil scaler passes features through.
func NewEnsemble(scaler *Scaler, decoder *LabelDecoder, models ...Model) (*Ensemble, error) {
	if len(models) == 0 {
		return nil, errors.New("classifier: ensemble needs at least one model")
	}
	if decoder == nil {
		return nil, errors.New("classifier: ensemble needs a label decoder")
	}
	return &Ensemble{scaler: scaler, models: models, decoder: decoder}, nil
}

// Models returns the names of the ensemble members.
func (e *Ensemble) Models() []string {
	names := make([]string, len(e.models))
	for i, m := range e.models {
		names[i] = m.Name()
	}
	return names
}

// Classify scales features, averages the member predictions and rounds the
// mean half-to-even to the nearest class id before decoding it.
func (e *Ensemble) Classify(ctx context.Context, features []float64) (Result, error) {
	if len(features) != FeatureCount {
		return Result{}, ErrFeatureCount
	}

	x := features
	if e.scaler != nil {
		scaled, err := e.scaler.Transform(features)
		if err != nil {
			return Result{}, err
		}
		x = scaled
	}

	preds := make([]float64, 0, len(e.models))
	var sum float64
	for _, m := range e.models {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p, err := m.Predict(ctx, x)
		if err != nil {
			return Result{}, fmt.Errorf("model %s: %w", m.Name(), err)
		}
		preds = append(preds, p)
		sum += p
	}

	id := int(math.RoundToEven(sum / float64(len(preds))))
	decoded := e.decoder.Decode(id)

	return Result{
		ClassID:     id,
		Label:       decoded.Label,
		Fallback:    decoded.Fallback,
		Warning:     Advisory(decoded.Label),
		Predictions: preds,
	}, nil
}

// Close releases models that hold runtime resources.
func (e *Ensemble) Close(ctx context.Context) error {
	var errs []error
	for _, m := range e.models {
		if err := closeModel(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeModel(ctx context.Context, m Model) error {
	if c, ok := m.(interface{ Close(context.Context) error }); ok {
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("close %s model: %w", m.Name(), err)
		}
	}
	return nil
}
