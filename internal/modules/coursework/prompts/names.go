package prompts

type PromptName string

const (
	PromptValidateContent PromptName = "validate_content"
	PromptSolveBatch      PromptName = "solve_batch"
	PromptReviewSolutions PromptName = "review_solutions"
	PromptExplainGuide    PromptName = "explain_guide"

	PromptModeExplain    PromptName = "mode_explain"
	PromptModeQuiz       PromptName = "mode_quiz"
	PromptModeFlashcards PromptName = "mode_flashcards"
	PromptModeDraft      PromptName = "mode_draft"

	PromptChatAnswer     PromptName = "chat_answer"
	PromptPageTranscribe PromptName = "page_transcribe"
)
