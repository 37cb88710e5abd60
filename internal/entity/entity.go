package entity

import (
	"encoding/json"
)

// Resource names as exposed by the data service.
const (
	ResourceBodyPart       = "bodypart"
	ResourceCategory       = "category"
	ResourceExercise       = "exercise"
	ResourceWorkoutHistory = "workout_history"
)

const UnknownName = "Unknown"

type BodyPart struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type Category struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type Exercise struct {
	ID         int    `json:"id,omitempty"`
	Name       string `json:"name"`
	BodyPartID int    `json:"bodypart_id"`
	CategoryID int    `json:"category_id"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

type WorkoutHistory struct {
	ID        int             `json:"id"`
	UserUID   string          `json:"user_uid"`
	Date      Timestamp       `json:"date"`
	Day       string          `json:"day"`
	Duration  int64           `json:"duration"` // milliseconds
	Exercises json.RawMessage `json:"exercises,omitempty"`
}

// LoginResponse is the session object stored for a signed-in user.
type LoginResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// BodyPartName resolves id against parts, falling back to UnknownName.
func BodyPartName(parts []BodyPart, id int) string {
	for _, p := range parts {
		if p.ID == id {
			return p.Name
		}
	}
	return UnknownName
}

// CategoryName resolves id against categories, falling back to UnknownName.
func CategoryName(categories []Category, id int) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return UnknownName
}
