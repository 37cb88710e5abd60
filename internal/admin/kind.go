package admin

import (
	"fmt"

	"github.com/2beens/gymbook/internal/entity"
)

// Kind selects one of the managed reference lists.
type Kind string

const (
	KindBodyParts  Kind = "bodyparts"
	KindCategories Kind = "categories"
	KindExercises  Kind = "exercises"
)

var kinds = []Kind{KindBodyParts, KindCategories, KindExercises}

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown admin kind: %q", s)
}

// Resource is the data service resource backing the kind.
func (k Kind) Resource() string {
	switch k {
	case KindBodyParts:
		return entity.ResourceBodyPart
	case KindCategories:
		return entity.ResourceCategory
	case KindExercises:
		return entity.ResourceExercise
	}
	return ""
}

// Label is the human readable singular used in toasts.
func (k Kind) Label() string {
	switch k {
	case KindBodyParts:
		return "Body part"
	case KindCategories:
		return "Category"
	case KindExercises:
		return "Exercise"
	}
	return string(k)
}
