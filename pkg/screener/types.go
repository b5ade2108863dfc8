package screener

// Submission is one screening record. This is the stable public type;
// internal representations may evolve independently.
type Submission struct {
	Answers [10]int `json:"answers"` // A1..A10, each 0 or 1
	Age     int     `json:"age"`     // years, 1..120

	Gender        string `json:"gender"`
	Ethnicity     string `json:"ethnicity"`
	Jaundice      string `json:"jaundice"`   // born with jaundice: "yes"/"no"
	FamilyASD     string `json:"family_asd"` // family member with ASD: "yes"/"no"
	Country       string `json:"country"`
	UsedAppBefore string `json:"used_app_before"`
	Relation      string `json:"relation"` // who completed the test
}

// Verdict is the screening result.
type Verdict struct {
	Prediction      int      `json:"prediction"`  // 1 = ASD traits indicated
	Probability     float64  `json:"probability"` // positive-class probability
	RiskLevel       string   `json:"risk_level"`  // Low, Medium or High
	TotalScore      int      `json:"total_score"` // sum of the ten answers
	Recommendations []string `json:"recommendations"`
}

// Question is one AQ-10 question.
type Question struct {
	ID   string `json:"id"` // A1..A10
	Text string `json:"text"`
}
