package decision

import "github.com/crimson-sun/screener/internal/model"

// Risk tier boundaries. Intervals are half-open: a boundary value belongs
// to the upper tier.
const (
	MediumFrom = 0.3
	HighFrom   = 0.7
)

// CautionAbove is the probability above which cautionary guidance is given
// even when the discrete label is negative.
const CautionAbove = 0.5

var (
	cautionary = []string{
		"Consider consulting with a qualified healthcare professional for a comprehensive evaluation",
		"Early intervention services may be beneficial if ASD is confirmed",
		"Connect with autism support organizations in your area",
		"Consider behavioral therapy and educational support if needed",
	}
	reassuring = []string{
		"Results suggest low likelihood of ASD, but this is not a definitive diagnosis",
		"If you have ongoing concerns, consult with a healthcare professional",
		"Continue monitoring developmental milestones",
		"Maintain regular check-ups with your healthcare provider",
	}
	disclaimers = []string{
		"This screening tool is not a substitute for professional medical diagnosis",
		"Results should be discussed with qualified healthcare professionals",
		"Consider multiple assessments over time for more accurate evaluation",
	}
)

// Decide turns a classifier output into a Verdict.
func Decide(label int, probability float64, answers [model.NumAnswers]int) model.Verdict {
	return model.Verdict{
		Prediction:      label,
		Probability:     probability,
		RiskLevel:       Tier(probability),
		TotalScore:      TotalScore(answers),
		Recommendations: Recommendations(label, probability),
	}
}

// Tier buckets the positive-class probability.
func Tier(p float64) model.RiskTier {
	switch {
	case p < MediumFrom:
		return model.RiskLow
	case p < HighFrom:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// TotalScore sums the behavioural answers.
func TotalScore(answers [model.NumAnswers]int) int {
	total := 0
	for _, a := range answers {
		total += a
	}
	return total
}

// Cautionary reports whether the cautionary recommendation set applies.
// It fires on a positive label OR a probability above CautionAbove, so a
// borderline case still gets cautionary guidance when the label is 0.
func Cautionary(label int, p float64) bool {
	return label == 1 || p > CautionAbove
}

// Recommendations returns four outcome-specific items followed by the three
// fixed disclaimers. The returned slice is freshly allocated.
func Recommendations(label int, p float64) []string {
	lead := reassuring
	if Cautionary(label, p) {
		lead = cautionary
	}
	out := make([]string, 0, len(lead)+len(disclaimers))
	out = append(out, lead...)
	return append(out, disclaimers...)
}
