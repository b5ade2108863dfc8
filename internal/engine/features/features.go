package features

import (
	"errors"

	"github.com/crimson-sun/screener/internal/engine/encoder"
	"github.com/crimson-sun/screener/internal/model"
)

var errNoEncoders = errors.New("features: no encoder set")

// columnOf maps a categorical field name to its position in model.Columns.
var columnOf = func() map[string]int {
	m := make(map[string]int, len(model.CategoricalFields))
	for i, name := range model.Columns {
		m[name] = i
	}
	return m
}()

// Build encodes a validated Submission into the classifier's feature
// vector: A1..A10, age, six categorical codes, the derived result
// (sum of A1..A10), then the relation code.
//
// The output depends only on sub and enc, so identical inputs always
// produce identical vectors. An absent categorical value is an
// *model.EncodingError; an unseen one is encoded as encoder.FallbackCode.
func Build(sub model.Submission, enc *encoder.Set) (model.FeatureVector, error) {
	var v model.FeatureVector
	if enc == nil {
		return v, &model.InternalError{Op: "encode", Err: errNoEncoders}
	}

	result := 0
	for i, a := range sub.Answers() {
		v[i] = float64(a)
		result += a
	}
	v[model.ColAge] = float64(sub.Age)

	for _, field := range model.CategoricalFields {
		raw, _ := sub.Category(field)
		if raw == "" {
			return model.FeatureVector{}, &model.EncodingError{Field: field, Reason: "value is absent"}
		}
		v[columnOf[field]] = float64(enc.Encode(field, raw))
	}

	v[model.ColResult] = float64(result)
	return v, nil
}
