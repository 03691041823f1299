package domain

import "github.com/yungbote/coursework-backend/internal/domain/coursework"

type (
	Assignment        = coursework.Assignment
	RawMaterial       = coursework.RawMaterial
	ExtractedDocument = coursework.ExtractedDocument
	ExtractionStatus  = coursework.ExtractionStatus
	Technique         = coursework.Technique
	Artifact          = coursework.Artifact
	Mode              = coursework.Mode
	ChatTurn          = coursework.ChatTurn

	Question         = coursework.Question
	ContentMetadata  = coursework.ContentMetadata
	ValidatedContent = coursework.ValidatedContent
	Solution         = coursework.Solution
	SolvedQuestion   = coursework.SolvedQuestion
	QuizQuestion     = coursework.QuizQuestion
	QuizPayload      = coursework.QuizPayload
	Flashcard        = coursework.Flashcard
	FlashcardPayload = coursework.FlashcardPayload
)

const (
	ExtractionExtracted = coursework.ExtractionExtracted
	ExtractionEmpty     = coursework.ExtractionEmpty
	ExtractionSkipped   = coursework.ExtractionSkipped
	ExtractionFailed    = coursework.ExtractionFailed

	TechniqueVisionOCR = coursework.TechniqueVisionOCR
	TechniqueDocToText = coursework.TechniqueDocToText
	TechniqueNotebook  = coursework.TechniqueNotebook
	TechniquePlainText = coursework.TechniquePlainText

	ModeExplain    = coursework.ModeExplain
	ModeQuiz       = coursework.ModeQuiz
	ModeFlashcards = coursework.ModeFlashcards
	ModeDraft      = coursework.ModeDraft

	RoleUser      = coursework.RoleUser
	RoleAssistant = coursework.RoleAssistant

	TurnComplete = coursework.TurnComplete
	TurnPartial  = coursework.TurnPartial
	TurnError    = coursework.TurnError
)
