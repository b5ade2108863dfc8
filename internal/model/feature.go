package model

// NumFeatures is the width of the classifier input.
const NumFeatures = 19

// Columns is the column order the classifier was trained on. It is not
// self-describing in the model artifact, so it lives here as a constant and
// must never be reordered.
var Columns = [NumFeatures]string{
	"A1_Score", "A2_Score", "A3_Score", "A4_Score", "A5_Score",
	"A6_Score", "A7_Score", "A8_Score", "A9_Score", "A10_Score",
	"age",
	FieldGender,
	FieldEthnicity,
	FieldJaundice,
	FieldFamilyASD,
	FieldCountry,
	FieldUsedAppBefore,
	"result",
	FieldRelation,
}

// Column indexes used when assembling and inspecting a FeatureVector.
const (
	ColAge    = 10
	ColResult = 17
)

// FeatureVector is the fixed-order numeric encoding of a Submission.
type FeatureVector [NumFeatures]float64

// Float32 returns the vector as float32 values, the input dtype of exported
// tree ensembles.
func (v FeatureVector) Float32() []float32 {
	out := make([]float32, NumFeatures)
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Result returns the derived total-score column.
func (v FeatureVector) Result() int {
	return int(v[ColResult])
}
