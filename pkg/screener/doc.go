// Package screener screens AQ-10 questionnaire submissions for autism
// spectrum traits using a fitted classifier.
//
// Quick start:
//
//	s, err := screener.New(screener.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	v, _ := s.Screen(ctx, sub)
//	fmt.Println(v.Prediction, v.RiskLevel) // 1 High
//
// A Screener is safe for concurrent use. Create once, reuse across
// requests. A verdict is a screening aid, not a diagnosis.
package screener
