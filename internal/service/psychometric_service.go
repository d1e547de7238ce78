package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harmonia/internal/domain"
	"harmonia/internal/repository"
)

var (
	ErrQuizIncomplete    = errors.New("quiz incomplete")
	ErrQuizInvalidOption = errors.New("quiz invalid option")
)

// fixedFiveQuestions es el cuestionario fijo de cinco escenarios. Contenido
// estable: no se genera ni se reordena.
var fixedFiveQuestions = []domain.PsychometricQuestion{
	{
		ID:       "dinner_check",
		Name:     "Dinner Check",
		Scenario: "You're out at a nice restaurant with a group of friends celebrating someone's birthday. When the check arrives, you notice it wasn't split evenly - some people ordered much more than others. The birthday person suggests just splitting it equally.",
		Question: "What do you do?",
		Type:     domain.QuestionTypeMultipleChoice,
		Options: []domain.QuestionOption{
			{ID: "dc_a", Text: "Speak up and suggest itemizing the bill so everyone pays for what they ordered", Traits: map[string]float64{"assertiveness": 0.8, "fairness": 0.9, "greed": 0.3}},
			{ID: "dc_b", Text: "Stay quiet and pay the equal split to avoid any awkwardness", Traits: map[string]float64{"agreeableness": 0.8, "conflict_avoidance": 0.9, "sloth": 0.4}},
			{ID: "dc_c", Text: "Quietly mention to one friend that the split seems unfair and see if they agree", Traits: map[string]float64{"diplomacy": 0.7, "social_awareness": 0.6, "envy": 0.3}},
			{ID: "dc_d", Text: "Offer to cover a larger portion yourself to keep everyone happy", Traits: map[string]float64{"generosity": 0.9, "pride": 0.5, "people_pleasing": 0.7}},
		},
	},
	{
		ID:       "tech_meltdown",
		Name:     "Tech Meltdown",
		Scenario: "You're working on an important project with a tight deadline. Suddenly, your computer crashes and you lose several hours of unsaved work. Your colleague, who was supposed to remind everyone to save regularly, is sitting nearby.",
		Question: "What's your immediate reaction?",
		Type:     domain.QuestionTypeMultipleChoice,
		Options: []domain.QuestionOption{
			{ID: "tm_a", Text: "Take a deep breath, accept it happened, and calmly start rebuilding the work", Traits: map[string]float64{"emotional_stability": 0.9, "resilience": 0.8, "sloth": 0.2}},
			{ID: "tm_b", Text: "Feel frustrated and need to vent to someone about what happened", Traits: map[string]float64{"expressiveness": 0.7, "wrath": 0.5, "social_need": 0.6}},
			{ID: "tm_c", Text: "Blame yourself for not saving more often and feel anxious about the deadline", Traits: map[string]float64{"self_criticism": 0.8, "anxiety": 0.7, "conscientiousness": 0.6}},
			{ID: "tm_d", Text: "Feel annoyed at your colleague for not sending that reminder", Traits: map[string]float64{"external_attribution": 0.7, "wrath": 0.6, "envy": 0.4}},
		},
	},
	{
		ID:       "found_wallet",
		Name:     "Found Wallet",
		Scenario: "While walking home, you find a wallet on the ground. Inside there's $500 in cash, credit cards, and an ID. The address on the ID shows the owner lives about 20 minutes away in the opposite direction of your home.",
		Question: "What do you do?",
		Type:     domain.QuestionTypeMultipleChoice,
		Options: []domain.QuestionOption{
			{ID: "fw_a", Text: "Immediately walk to the address and return the wallet in person", Traits: map[string]float64{"integrity": 0.9, "altruism": 0.8, "conscientiousness": 0.7}},
			{ID: "fw_b", Text: "Take it to the nearest police station and let them handle it", Traits: map[string]float64{"rule_following": 0.8, "practicality": 0.7, "sloth": 0.3}},
			{ID: "fw_c", Text: "Mail the wallet back with a nice note, keeping the cash as a 'finder's fee'", Traits: map[string]float64{"rationalization": 0.6, "greed": 0.7, "partial_integrity": 0.4}},
			{ID: "fw_d", Text: "Try to contact the person via social media to arrange a return", Traits: map[string]float64{"resourcefulness": 0.7, "tech_savvy": 0.6, "social_connection": 0.5}},
		},
	},
	{
		ID:       "restaurant_choice",
		Name:     "Restaurant Choice",
		Scenario: "Your friend group is trying to decide where to eat. You really want to try a new place you've been excited about, but others are suggesting the usual spots. One friend seems indifferent, two want the usual, and one seems open to new ideas.",
		Question: "How do you handle this?",
		Type:     domain.QuestionTypeMultipleChoice,
		Options: []domain.QuestionOption{
			{ID: "rc_a", Text: "Make a passionate case for why the new place would be amazing for everyone", Traits: map[string]float64{"persuasiveness": 0.8, "enthusiasm": 0.7, "pride": 0.5}},
			{ID: "rc_b", Text: "Suggest the new place but quickly agree with the majority if there's pushback", Traits: map[string]float64{"agreeableness": 0.7, "conflict_avoidance": 0.6, "sloth": 0.4}},
			{ID: "rc_c", Text: "Propose a compromise - usual place today, new place next time with commitment", Traits: map[string]float64{"diplomacy": 0.8, "strategic_thinking": 0.7, "patience": 0.6}},
			{ID: "rc_d", Text: "Go along with whatever everyone else wants - food is food", Traits: map[string]float64{"low_attachment": 0.6, "flexibility": 0.7, "gluttony": 0.2}},
		},
	},
	{
		ID:       "spontaneous_trip",
		Name:     "Spontaneous Trip",
		Scenario: "It's Friday afternoon and a friend calls with an unexpected opportunity: a free cabin for the weekend, leaving in 3 hours. You have some loose plans but nothing urgent. The cabin is beautiful but remote with no cell service.",
		Question: "What's your response?",
		Type:     domain.QuestionTypeMultipleChoice,
		Options: []domain.QuestionOption{
			{ID: "st_a", Text: "Immediately say yes and start packing - adventure awaits!", Traits: map[string]float64{"spontaneity": 0.9, "openness": 0.8, "lust": 0.4}},
			{ID: "st_b", Text: "Ask for details about who's going, what to bring, and logistics first", Traits: map[string]float64{"conscientiousness": 0.7, "planning": 0.8, "anxiety": 0.4}},
			{ID: "st_c", Text: "Decline - you prefer to have plans in advance and the no-service thing worries you", Traits: map[string]float64{"structure_need": 0.8, "anxiety": 0.6, "sloth": 0.5}},
			{ID: "st_d", Text: "Say maybe, then spend the next hour overthinking before deciding last minute", Traits: map[string]float64{"indecisiveness": 0.8, "anxiety": 0.7, "fomo": 0.6}},
		},
	},
}

// PsychometricService maneja el cuestionario fijo y la agregacion de rasgos.
type PsychometricService struct {
	logger *zap.Logger
	repo   repository.PsychometricRepository
	users  repository.UserRepository
}

func NewPsychometricService(logger *zap.Logger, repo repository.PsychometricRepository, users repository.UserRepository) *PsychometricService {
	return &PsychometricService{logger: logger, repo: repo, users: users}
}

// Questions devuelve el cuestionario completo.
func (s *PsychometricService) Questions() []domain.PsychometricQuestion {
	return fixedFiveQuestions
}

// QuestionCount devuelve el total de preguntas del cuestionario.
func (s *PsychometricService) QuestionCount() int {
	return len(fixedFiveQuestions)
}

// Submit valida que todas las preguntas esten respondidas con opciones
// validas, persiste las respuestas, agrega los rasgos (promedio por rasgo) y
// marca el progreso del usuario.
func (s *PsychometricService) Submit(ctx context.Context, userID string, answers []domain.QuestionAnswer) (map[string]float64, error) {
	byQuestion := make(map[string]domain.QuestionAnswer, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer
	}

	var missing []string
	for _, q := range fixedFiveQuestions {
		if _, ok := byQuestion[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing answers for %v", ErrQuizIncomplete, missing)
	}

	now := time.Now().UTC()
	aggregated := make(map[string][]float64)

	for _, q := range fixedFiveQuestions {
		answer := byQuestion[q.ID]

		var selected *domain.QuestionOption
		for i := range q.Options {
			if q.Options[i].ID == answer.SelectedOptionID {
				selected = &q.Options[i]
				break
			}
		}
		if selected == nil {
			return nil, fmt.Errorf("%w: question %s option %q", ErrQuizInvalidOption, q.ID, answer.SelectedOptionID)
		}

		if err := s.repo.CreateResponse(ctx, domain.PsychometricResponse{
			ID:               uuid.NewString(),
			UserID:           userID,
			QuestionID:       q.ID,
			SelectedOptionID: selected.ID,
			TraitsExtracted:  selected.Traits,
			CreatedAt:        now,
		}); err != nil {
			return nil, fmt.Errorf("persist response: %w", err)
		}

		for trait, weight := range selected.Traits {
			aggregated[trait] = append(aggregated[trait], weight)
		}
	}

	scores := make(map[string]float64, len(aggregated))
	traitNames := make([]string, 0, len(aggregated))
	for trait := range aggregated {
		traitNames = append(traitNames, trait)
	}
	sort.Strings(traitNames)

	for _, trait := range traitNames {
		weights := aggregated[trait]
		var sum float64
		for _, w := range weights {
			sum += w
		}
		score := math.Round(sum/float64(len(weights))*100) / 100
		scores[trait] = score

		if err := s.repo.UpsertTrait(ctx, domain.Trait{
			ID:        uuid.NewString(),
			UserID:    userID,
			Category:  domain.TraitCategoryPsychometric,
			Trait:     trait,
			Value:     score,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			if s.logger != nil {
				s.logger.Warn("trait upsert failed", zap.Error(err), zap.String("trait", trait))
			}
			return nil, fmt.Errorf("trait upsert: %w", err)
		}
	}

	if err := s.users.SetPsychometricComplete(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("mark psychometric complete: %w", err)
	}

	return scores, nil
}

// Status devuelve cuantas preguntas respondio el usuario.
func (s *PsychometricService) Status(ctx context.Context, userID string) (answered, total int, err error) {
	answered, err = s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return answered, len(fixedFiveQuestions), nil
}
