package sandbox

import (
	"context"

	"github.com/dmorales/periogame/internal/models"
)

// DemoGroupCode is the join code of the seeded demo group.
const DemoGroupCode = "PERIO1"

// Seed loads a small periodontitis question bank unless the database already
// has content. Returns the demo group.
func Seed(ctx context.Context, store *Store) (*models.Group, error) {
	if ok, err := store.HasGroups(ctx); err != nil {
		return nil, err
	} else if ok {
		return store.GetGroupByCode(ctx, DemoGroupCode)
	}

	group := &models.Group{
		Name:        "Periodontitis basics",
		Description: "Demo question bank for local play",
		Code:        DemoGroupCode,
		CreatedBy:   "sandbox",
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	questions := []models.Question{
		{
			Title:       "What is periodontitis",
			Description: "Which of the following best describes periodontitis?",
			TipNote:     "Think beyond the gum surface.",
			Feedback:    "Periodontitis is a serious gum infection that damages the soft tissue and, without treatment, destroys the bone supporting the teeth.",
			Options: []models.QuestionOption{
				{Text: "A cavity in the tooth enamel"},
				{Text: "An infection of the tissues that hold teeth in place", IsCorrect: 1},
				{Text: "A temporary gum irritation after brushing"},
				{Text: "A discoloration of the tooth surface"},
			},
		},
		{
			Title:       "Early warning sign",
			Description: "Which symptom is an early warning sign of gum disease?",
			TipNote:     "It shows up when you brush.",
			Feedback:    "Bleeding gums during brushing or flossing are one of the earliest signs of gingivitis, which can progress to periodontitis.",
			Options: []models.QuestionOption{
				{Text: "Bleeding gums when brushing", IsCorrect: 1},
				{Text: "Whiter teeth"},
				{Text: "Increased saliva production"},
				{Text: "Sharper sense of taste"},
			},
		},
		{
			Title:       "Main cause",
			Description: "What is the main cause of periodontitis?",
			TipNote:     "It builds up daily on the teeth.",
			Feedback:    "Bacterial plaque that accumulates on teeth and hardens into tartar is the primary driver of periodontal disease.",
			Options: []models.QuestionOption{
				{Text: "Drinking cold water"},
				{Text: "Chewing sugar-free gum"},
				{Text: "Bacterial plaque buildup", IsCorrect: 1},
				{Text: "Using a soft toothbrush"},
			},
		},
		{
			Title:       "Prevention",
			Description: "Which habit best helps prevent periodontitis?",
			TipNote:     "Consistency matters more than intensity.",
			Feedback:    "Daily brushing and flossing plus regular dental cleanings remove the plaque that causes periodontal disease.",
			Options: []models.QuestionOption{
				{Text: "Rinsing with water once a week"},
				{Text: "Daily brushing, flossing and regular checkups", IsCorrect: 1},
				{Text: "Avoiding all dairy products"},
				{Text: "Brushing hard once a day"},
			},
		},
		{
			Title:       "Smoking and gums",
			Description: "How does smoking affect periodontal health?",
			TipNote:     "Consider healing and blood flow.",
			Feedback:    "Smoking weakens the immune response and reduces gum blood flow, making infection more likely and treatment less effective.",
			Options: []models.QuestionOption{
				{Text: "It has no effect on the gums"},
				{Text: "It strengthens gum tissue"},
				{Text: "It raises the risk and worsens treatment outcomes", IsCorrect: 1},
				{Text: "It only stains the teeth"},
			},
		},
	}

	for i := range questions {
		if err := store.InsertQuestion(ctx, group.ID, i, &questions[i]); err != nil {
			return nil, err
		}
	}
	return group, nil
}
