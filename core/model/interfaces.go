// Package model provides the adapter contracts shared by every model family.
// This file defines the Spec/Fitted pair plus the value types (Mode,
// OutputKind, Params) that flow between pipelines, tuners, and families.
package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Mode identifies the prediction task a model family solves.
type Mode int

const (
	// Regression predicts continuous values.
	Regression Mode = iota
	// Classification predicts discrete class labels.
	Classification
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case Regression:
		return "regression"
	case Classification:
		return "classification"
	default:
		return "unknown"
	}
}

// OutputKind selects the representation a fitted model's Predict returns.
type OutputKind int

const (
	// ClassLabel requests an n×1 matrix of class indices.
	ClassLabel OutputKind = iota
	// ClassProbability requests an n×k matrix of per-class probabilities.
	ClassProbability
	// ContinuousValue requests an n×1 matrix of numeric predictions.
	ContinuousValue
)

// String returns the string representation of the output kind.
func (k OutputKind) String() string {
	switch k {
	case ClassLabel:
		return "class"
	case ClassProbability:
		return "class_prob"
	case ContinuousValue:
		return "numeric"
	default:
		return "unknown"
	}
}

// Params carries a fully bound hyperparameter assignment into Spec.Fit.
// Families validate the keys they receive and reject any they do not
// recognize, so a typo in a tuning grid surfaces as an error rather than
// silently fitting with defaults.
type Params map[string]float64

// Get returns the value bound to name, or dflt when the key is absent.
func (p Params) Get(name string, dflt float64) float64 {
	if p == nil {
		return dflt
	}
	if v, ok := p[name]; ok {
		return v
	}
	return dflt
}

// Has reports whether name is bound in the assignment.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Clone returns an independent copy of the assignment.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	clone := make(Params, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Names returns the bound parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Unknown returns the bound names that are not in the allowed set.
// Families use this to validate assignments before fitting.
func (p Params) Unknown(allowed ...string) []string {
	var unknown []string
	for _, name := range p.Names() {
		found := false
		for _, a := range allowed {
			if name == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Spec describes an unfitted model family configuration. Specs are immutable
// values: Fit never mutates the receiver or its inputs, so one Spec can be
// fitted concurrently across folds and hyperparameter assignments.
type Spec interface {
	// Family returns the family identifier, e.g. "linear_reg" or "rand_forest".
	Family() string

	// Mode returns the prediction task this family solves.
	Mode() Mode

	// Fit trains on the design matrix X and outcome vector y using the given
	// hyperparameter assignment. y holds numeric outcomes for regression and
	// class indices for classification.
	Fit(X mat.Matrix, y []float64, params Params) (Fitted, error)
}

// Fitted is an immutable trained model produced by Spec.Fit.
type Fitted interface {
	// Family returns the identifier of the family that produced this model.
	Family() string

	// Mode returns the prediction task of the producing family.
	Mode() Mode

	// Predict produces predictions for X in the requested representation.
	// Families return UnsupportedOutputKindError for kinds they cannot serve.
	Predict(X mat.Matrix, kind OutputKind) (mat.Matrix, error)
}

// Scorer is the interface for fitted models that score themselves on
// labeled data: R² for regression families, accuracy for classifiers.
type Scorer interface {
	// Score returns the model's default score for X against y.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// ParameterGetter is the interface for specs that expose their effective
// configuration, defaults included.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// WeightExporter is the interface for fitted models that expose their
// learned coefficients for reporting.
type WeightExporter interface {
	// ExportWeights returns the model's learned weights.
	ExportWeights() (*ModelWeights, error)
}
