package domain

import "time"

const QuestionTypeMultipleChoice = "multiple_choice"

// QuestionOption es una opcion de respuesta con sus pesos de rasgos.
type QuestionOption struct {
	ID     string             `json:"id"`
	Text   string             `json:"text"`
	Traits map[string]float64 `json:"traits"`
}

// PsychometricQuestion es una pregunta de escenario del cuestionario fijo.
type PsychometricQuestion struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Scenario string           `json:"scenario"`
	Question string           `json:"question"`
	Type     string           `json:"type"`
	Options  []QuestionOption `json:"options"`
}

// QuestionAnswer es la respuesta de un usuario a una pregunta.
type QuestionAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
}

// PsychometricResponse es la respuesta persistida con los rasgos extraidos.
type PsychometricResponse struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	QuestionID       string             `json:"question_id"`
	SelectedOptionID string             `json:"selected_option_id"`
	TraitsExtracted  map[string]float64 `json:"traits_extracted"`
	CreatedAt        time.Time          `json:"created_at"`
}

const TraitCategoryPsychometric = "PSYCHOMETRIC"

// Trait es un rasgo agregado del perfil de un usuario.
type Trait struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Trait     string    `json:"trait"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
