package modes

import (
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/yungbote/coursework-backend/internal/domain"
)

// quizWire mirrors QuizPayload with a pointer answer so an omitted
// correctAnswer is caught instead of decoding as option A.
type quizWire struct {
	Questions []struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer *int     `json:"correctAnswer"`
	} `json:"questions"`
}

func decodeQuiz(raw []byte, count int) (types.QuizPayload, error) {
	var r quizWire
	if err := json.Unmarshal(raw, &r); err != nil {
		return types.QuizPayload{}, err
	}
	q := types.QuizPayload{Questions: make([]types.QuizQuestion, 0, len(r.Questions))}
	for i, qq := range r.Questions {
		if qq.CorrectAnswer == nil {
			return types.QuizPayload{}, fmt.Errorf("question %d has no correctAnswer", i+1)
		}
		q.Questions = append(q.Questions, types.QuizQuestion{Question: qq.Question, Options: qq.Options, CorrectAnswer: *qq.CorrectAnswer})
	}
	return q, validateQuiz(q, count)
}

func validateQuiz(q types.QuizPayload, count int) error {
	if len(q.Questions) != count {
		return fmt.Errorf("want %d questions, got %d", count, len(q.Questions))
	}
	for i, qq := range q.Questions {
		if strings.TrimSpace(qq.Question) == "" {
			return fmt.Errorf("question %d is empty", i+1)
		}
		if len(qq.Options) != 4 {
			return fmt.Errorf("question %d has %d options, want 4", i+1, len(qq.Options))
		}
		for j, o := range qq.Options {
			if strings.TrimSpace(o) == "" {
				return fmt.Errorf("question %d option %d is empty", i+1, j+1)
			}
		}
		if qq.CorrectAnswer < 0 || qq.CorrectAnswer > 3 {
			return fmt.Errorf("question %d correctAnswer %d out of range", i+1, qq.CorrectAnswer)
		}
	}
	return nil
}

func validateFlashcards(f types.FlashcardPayload) error {
	if len(f.Flashcards) == 0 {
		return fmt.Errorf("no flashcards")
	}
	for i, c := range f.Flashcards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			return fmt.Errorf("flashcard %d has an empty side", i+1)
		}
	}
	return nil
}
