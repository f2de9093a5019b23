// File: internal/usecase/prompt.go
package usecase

import (
	"fmt"
	"strings"
)

var quizDifficultyNotes = map[string]string{
	"beginner":     "basic concepts, fundamental principles, simple recall questions",
	"intermediate": "moderate complexity, application of concepts, some analysis required",
	"advanced":     "complex scenarios, critical thinking, synthesis of multiple concepts",
}

var flashcardDifficultyNotes = map[string]string{
	"beginner":     "simple definitions, basic facts, fundamental terms",
	"intermediate": "concepts with examples, relationships between ideas",
	"advanced":     "complex topics, cross-disciplinary connections, advanced applications",
}

func validDifficulty(d string) bool {
	_, ok := quizDifficultyNotes[d]
	return ok
}

func buildQuizPrompt(req QuizRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d multiple-choice questions for %s at %s level.\n",
		req.NumQuestions, req.Subject, req.Grade)
	fmt.Fprintf(&b, "Difficulty: %s (%s)\n", req.Difficulty, quizDifficultyNotes[req.Difficulty])
	if req.LearningStyle != "" {
		fmt.Fprintf(&b, "Learning style preference: %s\n", req.LearningStyle)
	}
	b.WriteString(`
Format each question as JSON with this exact structure:
{
  "id": number,
  "question": "Question text",
  "options": ["A) Option 1", "B) Option 2", "C) Option 3", "D) Option 4"],
  "correctAnswer": "A",
  "explanation": "Brief explanation of why this is correct"
}

`)
	fmt.Fprintf(&b, "Return a JSON array with all %d questions. Start with [ and end with ]. Do not include any markdown formatting or code blocks.", req.NumQuestions)
	return b.String()
}

func buildFlashcardPrompt(req FlashcardRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d flashcard pairs for %s at %s level.\n",
		req.NumCards, req.Subject, req.Grade)
	fmt.Fprintf(&b, "Difficulty: %s (%s)\n", req.Difficulty, flashcardDifficultyNotes[req.Difficulty])
	if req.LearningStyle != "" {
		fmt.Fprintf(&b, "Learning style preference: %s\n", req.LearningStyle)
	}
	b.WriteString(`
Format each flashcard as JSON with this exact structure:
{
  "id": number,
  "front": "Question or term",
  "back": "Answer or definition"
}

`)
	fmt.Fprintf(&b, "Return a JSON array with all %d flashcards. Start with [ and end with ]. Do not include any markdown formatting or code blocks.", req.NumCards)
	return b.String()
}

func buildTutorPrompt(req TutorRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert AI tutor helping a %s student understand concepts.\n\n", req.Grade)
	fmt.Fprintf(&b, "Student's question: %q\n", req.Question)
	if req.LearningStyle != "" {
		fmt.Fprintf(&b, "Learning style: %s\n", req.LearningStyle)
	}
	fmt.Fprintf(&b, `
Provide a clear, concise explanation tailored to a %s student's level.
- Start with a direct answer
- Use relevant examples
- Break down complex concepts
- Encourage critical thinking
- Keep the explanation engaging and appropriate for the student's level

Format your response in a way that's easy to understand and remember.`, req.Grade)
	return b.String()
}

// stripCodeFence removes a markdown fence some models wrap around JSON
// despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
