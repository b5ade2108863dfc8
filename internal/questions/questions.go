// Package questions holds the static text of the ten behavioural questions.
package questions

import "fmt"

var text = [10]string{
	"I often notice small sounds when others do not",
	"I usually concentrate more on the whole picture, rather than the small details",
	"I find it easy to do more than one thing at once",
	"If there is an interruption, I can switch back to what I was doing very quickly",
	"I find it easy to 'read between the lines' when someone is talking to me",
	"I know how to tell if someone listening to me is getting bored",
	"When I'm reading a story I find it difficult to work out the characters' intentions",
	"I like to collect information about categories of things",
	"I find it easy to work out what someone is thinking or feeling just by looking at their face",
	"I find it difficult to work out people's intentions",
}

// Question is one behavioural item.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// All returns the questions in order, A1 first.
func All() []Question {
	out := make([]Question, len(text))
	for i, t := range text {
		out[i] = Question{ID: fmt.Sprintf("A%d", i+1), Text: t}
	}
	return out
}

// Map returns the questions keyed by ID ("A1".."A10").
func Map() map[string]string {
	m := make(map[string]string, len(text))
	for _, q := range All() {
		m[q.ID] = q.Text
	}
	return m
}
