package model

// Generated-content shapes and the type guards applied to raw generator
// output. The guards work on decoded JSON (any) so that a missing or
// mistyped field is detectable before mapping into the typed structs;
// malformed output must be treated as a generation failure, never accepted.

const (
	maxQuestionLen    = 1000
	maxOptionLen      = 500
	maxAnswerLen      = 10
	maxExplanationLen = 500
	maxFrontLen       = 500
	maxBackLen        = 1000
)

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type Flashcard struct {
	ID    int    `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ValidateQuizPayload type-guards decoded generator output against the quiz
// shape: an array of objects with numeric id, string question, string-array
// options, string correctAnswer and explanation.
func ValidateQuizPayload(data any) bool {
	items, ok := data.([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := obj["id"].(float64); !ok {
			return false
		}
		if _, ok := obj["question"].(string); !ok {
			return false
		}
		opts, ok := obj["options"].([]any)
		if !ok {
			return false
		}
		for _, o := range opts {
			if _, ok := o.(string); !ok {
				return false
			}
		}
		if _, ok := obj["correctAnswer"].(string); !ok {
			return false
		}
		if _, ok := obj["explanation"].(string); !ok {
			return false
		}
	}
	return true
}

// ValidateFlashcardPayload type-guards decoded generator output against the
// flashcard shape: an array of objects with numeric id, string front/back.
func ValidateFlashcardPayload(data any) bool {
	items, ok := data.([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := obj["id"].(float64); !ok {
			return false
		}
		if _, ok := obj["front"].(string); !ok {
			return false
		}
		if _, ok := obj["back"].(string); !ok {
			return false
		}
	}
	return true
}

// QuizFromPayload maps a validated payload into typed questions.
// Call ValidateQuizPayload first; unexpected shapes are skipped.
func QuizFromPayload(data any) []QuizQuestion {
	items, _ := data.([]any)
	out := make([]QuizQuestion, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["id"].(float64)
		question, _ := obj["question"].(string)
		answer, _ := obj["correctAnswer"].(string)
		explanation, _ := obj["explanation"].(string)
		rawOpts, _ := obj["options"].([]any)
		opts := make([]string, 0, len(rawOpts))
		for _, o := range rawOpts {
			s, _ := o.(string)
			opts = append(opts, s)
		}
		out = append(out, QuizQuestion{
			ID:            int(id),
			Question:      question,
			Options:       opts,
			CorrectAnswer: answer,
			Explanation:   explanation,
		})
	}
	return out
}

// FlashcardsFromPayload maps a validated payload into typed flashcards.
func FlashcardsFromPayload(data any) []Flashcard {
	items, _ := data.([]any)
	out := make([]Flashcard, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["id"].(float64)
		front, _ := obj["front"].(string)
		back, _ := obj["back"].(string)
		out = append(out, Flashcard{ID: int(id), Front: front, Back: back})
	}
	return out
}

// SanitizeQuiz bounds free-text fields with a hard substring cut. Lossy on
// purpose; it caps storage and rendering cost, it is not an error.
func SanitizeQuiz(questions []QuizQuestion) []QuizQuestion {
	out := make([]QuizQuestion, len(questions))
	for i, q := range questions {
		opts := make([]string, len(q.Options))
		for j, o := range q.Options {
			opts[j] = truncate(o, maxOptionLen)
		}
		out[i] = QuizQuestion{
			ID:            q.ID,
			Question:      truncate(q.Question, maxQuestionLen),
			Options:       opts,
			CorrectAnswer: truncate(q.CorrectAnswer, maxAnswerLen),
			Explanation:   truncate(q.Explanation, maxExplanationLen),
		}
	}
	return out
}

// SanitizeFlashcards bounds front/back text the same way.
func SanitizeFlashcards(cards []Flashcard) []Flashcard {
	out := make([]Flashcard, len(cards))
	for i, c := range cards {
		out[i] = Flashcard{
			ID:    c.ID,
			Front: truncate(c.Front, maxFrontLen),
			Back:  truncate(c.Back, maxBackLen),
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
