// Package modelflow provides a model evaluation pipeline library for Go:
// data splitting, preprocessing recipes, model fitting, resampling, and
// hyperparameter tuning behind one consistent API.
//
// modelflow keeps every fitting decision inside the resampling loop, so
// held-out data never leaks into preprocessing statistics or model
// estimates. Recipes are estimated on training data and replayed frozen
// on new data; tuners refit the whole pipeline per fold.
//
// # Installation
//
// Install modelflow using go get:
//
//	go get github.com/YuminosukeSato/modelflow
//
// # Quick Start
//
// Split, preprocess, fit, and score a regression pipeline:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/modelflow/core/model"
//	    "github.com/YuminosukeSato/modelflow/dataset"
//	    "github.com/YuminosukeSato/modelflow/linear"
//	    "github.com/YuminosukeSato/modelflow/pipeline"
//	    "github.com/YuminosukeSato/modelflow/recipe"
//	    "github.com/YuminosukeSato/modelflow/split"
//	)
//
//	func main() {
//	    ds, err := dataset.ReadCSVFile("homes.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    sp, err := split.Initial(ds, split.WithTrainFraction(0.8), split.WithSeed(42))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    train, _ := sp.Train()
//	    test, _ := sp.Test()
//
//	    rec := recipe.New().Log(10, "price").Normalize("sqft", "age")
//	    pl := pipeline.New(rec, linear.Regression(), "price")
//
//	    fitted, err := pl.Fit(train, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    pred, err := fitted.Predict(test, model.ContinuousValue)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - dataset: immutable columnar data, CSV reading/writing, matrix bridge
//   - split: stratified initial train/test splitting
//   - resample: k-fold cross-validation fold sets
//   - recipe: two-phase preprocessing steps (log, normalize, filter, dummy)
//   - linear: linear and logistic regression families
//   - tree: decision tree families
//   - ensemble: random forest classification
//   - metrics: regression and classification metric functions
//   - pipeline: recipe + model composition, the unit tuners evaluate
//   - tune: hyperparameter domains, grid search, final fit
//   - report: tuning result plots
//   - core/model: the Spec/Fitted contracts every family implements
//   - core/parallel: worker helpers shared by the heavier families
//
// # Reproducibility
//
// Every randomized operation (splitting, fold assignment, random grids,
// forest bootstrapping) takes an explicit seed and is deterministic for
// a given seed, dataset, and configuration. Fitted artifacts are
// immutable: fitting never mutates the spec, the recipe, or the input
// data, so pipelines are safe to evaluate concurrently across folds.
//
// # License
//
// modelflow is released under the MIT License.
package modelflow
