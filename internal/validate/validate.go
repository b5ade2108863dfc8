// Package validate turns raw request bodies into Submissions, rejecting
// anything that violates the submission schema before it reaches the
// encoders.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/crimson-sun/screener/internal/model"
)

//go:embed submission.schema.json
var schemaDoc []byte

const schemaURL = "https://screener.local/submission.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error

	printer = message.NewPrinter(language.English)
)

func submissionSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDoc))
		if err != nil {
			compileErr = fmt.Errorf("validate: parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("validate: add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Schema returns the embedded submission JSON schema document.
func Schema() []byte {
	return append([]byte(nil), schemaDoc...)
}

// Decode parses and validates a raw submission body. Any violation is
// reported as a *model.ValidationError listing every offending field.
// Unknown extra properties are ignored.
func Decode(body []byte) (model.Submission, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return model.Submission{}, &model.ValidationError{
			Problems: []model.Problem{{Reason: "request body is empty"}},
		}
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return model.Submission{}, &model.ValidationError{
			Problems: []model.Problem{{Reason: "body is not valid JSON: " + err.Error()}},
		}
	}

	sch, err := submissionSchema()
	if err != nil {
		return model.Submission{}, &model.InternalError{Op: "validate", Err: err}
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return model.Submission{}, &model.ValidationError{Problems: problems(verr)}
		}
		return model.Submission{}, &model.InternalError{Op: "validate", Err: err}
	}

	sub, err := fromInstance(inst.(map[string]any))
	if err != nil {
		return model.Submission{}, err
	}
	return sub, Check(sub)
}

// problems flattens a schema validation tree into one Problem per leaf,
// sorted by field.
func problems(root *jsonschema.ValidationError) []model.Problem {
	var out []model.Problem
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if req, ok := e.ErrorKind.(*kind.Required); ok {
			for _, name := range req.Missing {
				out = append(out, model.Problem{Field: name, Reason: "is required"})
			}
			return
		}
		out = append(out, model.Problem{
			Field:  strings.Join(e.InstanceLocation, "/"),
			Reason: e.ErrorKind.LocalizedString(printer),
		})
	}
	walk(root)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fromInstance copies a schema-valid instance into a Submission.
func fromInstance(m map[string]any) (model.Submission, error) {
	var (
		sub  model.Submission
		errs []model.Problem
	)
	num := func(name string) int {
		n, ok := m[name].(json.Number)
		if !ok {
			errs = append(errs, model.Problem{Field: name, Reason: "is not a number"})
			return 0
		}
		// The schema accepts integral floats such as 1.0.
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			errs = append(errs, model.Problem{Field: name, Reason: err.Error()})
			return 0
		}
		return int(f)
	}
	str := func(name string) string {
		s, _ := m[name].(string)
		return s
	}

	answers := []*int{&sub.A1, &sub.A2, &sub.A3, &sub.A4, &sub.A5, &sub.A6, &sub.A7, &sub.A8, &sub.A9, &sub.A10}
	for i, dst := range answers {
		*dst = num(model.AnswerField(i))
	}
	sub.Age = num("age")
	sub.Gender = str(model.FieldGender)
	sub.Ethnicity = str(model.FieldEthnicity)
	sub.Jaundice = str(model.FieldJaundice)
	sub.FamilyASD = str(model.FieldFamilyASD)
	sub.Country = str(model.FieldCountry)
	sub.UsedAppBefore = str(model.FieldUsedAppBefore)
	sub.Relation = str(model.FieldRelation)

	if len(errs) > 0 {
		return model.Submission{}, &model.ValidationError{Problems: errs}
	}
	return sub, nil
}

// Check applies the numeric range constraints to an already typed
// Submission, for callers that bypass Decode. Categorical strings are not
// checked here: a Go zero value cannot be told apart from an absent field,
// and the feature encoder reports those as *model.EncodingError.
func Check(sub model.Submission) error {
	var errs []model.Problem
	for i, a := range sub.Answers() {
		if a != 0 && a != 1 {
			errs = append(errs, model.Problem{
				Field:  model.AnswerField(i),
				Reason: fmt.Sprintf("must be 0 or 1, got %d", a),
			})
		}
	}
	if sub.Age < model.MinAge || sub.Age > model.MaxAge {
		errs = append(errs, model.Problem{
			Field:  "age",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", model.MinAge, model.MaxAge, sub.Age),
		})
	}
	if len(errs) > 0 {
		return &model.ValidationError{Problems: errs}
	}
	return nil
}
