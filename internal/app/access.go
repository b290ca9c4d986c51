package app

import (
	"context"

	"campus-quiz-service/internal/domain"
)

// AccessLevel classifies what a requester may see of a quiz.
type AccessLevel string

const (
	// AccessPreview exposes metadata only; the password is still required.
	AccessPreview AccessLevel = "preview"
	// AccessFull exposes the quiz content appropriate to the requester role.
	AccessFull AccessLevel = "full"
)

// Access is the outcome of resolving a requester against a quiz. Quiz is
// already sanitized for the granted level: previews carry no questions, and
// taker views carry no correct answers.
type Access struct {
	Level            AccessLevel `json:"level"`
	RequiresPassword bool        `json:"requiresPassword"`
	Quiz             domain.Quiz `json:"quiz"`
}

// AccessGate decides whether a requester may view or take a quiz.
type AccessGate struct {
	quizzes QuizRepository
}

func NewAccessGate(quizzes QuizRepository) *AccessGate {
	return &AccessGate{quizzes: quizzes}
}

// Resolve fetches the quiz and applies the visibility rules. Owners always
// get full, unsanitized access regardless of lifecycle state. Takers are
// rejected on inactive quizzes before any password check, see the full
// sanitized quiz when it is public or the password matches, and fall back to
// a metadata-only preview on a private quiz with a missing or wrong password.
func (g *AccessGate) Resolve(ctx context.Context, role domain.Role, requesterID, quizID, suppliedPassword string) (Access, error) {
	quiz, err := g.quizzes.Get(ctx, quizID)
	if err != nil {
		return Access{}, err
	}

	if role.IsManager() {
		if quiz.OwnerID != requesterID {
			return Access{}, domain.ErrQuizNotFound
		}
		return Access{Level: AccessFull, Quiz: quiz}, nil
	}

	// Inactive wins over password correctness for the taking flow.
	if !quiz.IsActive {
		return Access{}, domain.ErrQuizInactive
	}

	if quiz.Visibility == domain.VisibilityPrivate && suppliedPassword != quiz.Password {
		return Access{
			Level:            AccessPreview,
			RequiresPassword: true,
			Quiz:             PreviewQuiz(quiz),
		}, nil
	}

	return Access{Level: AccessFull, Quiz: TakerQuiz(quiz)}, nil
}

// PreviewQuiz strips everything but non-sensitive metadata: name,
// description, counts and the time limit survive; questions never do.
func PreviewQuiz(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = nil
	quiz.Password = ""
	quiz.Stats = domain.QuizStats{}
	return quiz
}

// TakerQuiz strips the answer key and password from a quiz bound for a
// student taking it.
func TakerQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		questions[i].CorrectAnswer = ""
		questions[i].Explanation = ""
	}
	quiz.Questions = questions
	quiz.Password = ""
	quiz.Stats = domain.QuizStats{}
	return quiz
}
