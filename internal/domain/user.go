package domain

import "time"

type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Username             string    `json:"username"`
	PasswordHash         string    `json:"-"`
	Gender               string    `json:"gender,omitempty"`
	PreferenceTarget     string    `json:"preference_target,omitempty"`
	CalibrationComplete  bool      `json:"calibration_complete"`
	PsychometricComplete bool      `json:"psychometric_complete"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
