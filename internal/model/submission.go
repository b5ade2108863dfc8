package model

// NumAnswers is the number of binary behavioural questions (A1..A10).
const NumAnswers = 10

// Age bounds accepted for a submission, inclusive.
const (
	MinAge = 1
	MaxAge = 120
)

// Categorical field names. These are the training-time column names and the
// keys of the fitted encoder artifact.
const (
	FieldGender        = "gender"
	FieldEthnicity     = "ethnicity"
	FieldJaundice      = "jaundice"
	FieldFamilyASD     = "austim"
	FieldCountry       = "contry_of_res"
	FieldUsedAppBefore = "used_app_before"
	FieldRelation      = "relation"
)

// CategoricalFields lists the seven categorical fields in the order they
// appear in the feature vector.
var CategoricalFields = []string{
	FieldGender,
	FieldEthnicity,
	FieldJaundice,
	FieldFamilyASD,
	FieldCountry,
	FieldUsedAppBefore,
	FieldRelation,
}

// Submission is one client-provided screening record: ten binary behavioural
// answers, an age, and seven free-form demographic/history strings.
// JSON names follow the wire contract used by existing clients.
type Submission struct {
	A1  int `json:"A1_Score"`
	A2  int `json:"A2_Score"`
	A3  int `json:"A3_Score"`
	A4  int `json:"A4_Score"`
	A5  int `json:"A5_Score"`
	A6  int `json:"A6_Score"`
	A7  int `json:"A7_Score"`
	A8  int `json:"A8_Score"`
	A9  int `json:"A9_Score"`
	A10 int `json:"A10_Score"`

	Age int `json:"age"`

	Gender        string `json:"gender"`
	Ethnicity     string `json:"ethnicity"`
	Jaundice      string `json:"jaundice"`
	FamilyASD     string `json:"austim"`
	Country       string `json:"contry_of_res"`
	UsedAppBefore string `json:"used_app_before"`
	Relation      string `json:"relation"`
}

// Answers returns A1..A10 in question order.
func (s Submission) Answers() [NumAnswers]int {
	return [NumAnswers]int{s.A1, s.A2, s.A3, s.A4, s.A5, s.A6, s.A7, s.A8, s.A9, s.A10}
}

// Category returns the raw value of the named categorical field.
// ok is false for names that are not categorical fields.
func (s Submission) Category(field string) (value string, ok bool) {
	switch field {
	case FieldGender:
		return s.Gender, true
	case FieldEthnicity:
		return s.Ethnicity, true
	case FieldJaundice:
		return s.Jaundice, true
	case FieldFamilyASD:
		return s.FamilyASD, true
	case FieldCountry:
		return s.Country, true
	case FieldUsedAppBefore:
		return s.UsedAppBefore, true
	case FieldRelation:
		return s.Relation, true
	default:
		return "", false
	}
}

// AnswerField returns the wire name of answer i (0-indexed), e.g. "A3_Score".
func AnswerField(i int) string {
	return Columns[i]
}
