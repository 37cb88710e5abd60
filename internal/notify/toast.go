package notify

import (
	"context"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const (
	DefaultDurationMs         = 2000
	DefaultVerticalPosition   = "top"
	DefaultHorizontalPosition = "center"
	SuccessPanelClass         = "success-snackbar"
	ErrorPanelClass           = "error-snackbar"
)

// Toast is a transient notification shown to the user.
type Toast struct {
	Message            string `json:"message"`
	Level              Level  `json:"level"`
	DurationMs         int    `json:"durationMs"`
	VerticalPosition   string `json:"verticalPosition"`
	HorizontalPosition string `json:"horizontalPosition"`
	PanelClass         string `json:"panelClass"`
	Action             string `json:"action,omitempty"`
}

func Success(message string) Toast {
	return Toast{
		Message:            message,
		Level:              LevelSuccess,
		DurationMs:         DefaultDurationMs,
		VerticalPosition:   DefaultVerticalPosition,
		HorizontalPosition: DefaultHorizontalPosition,
		PanelClass:         SuccessPanelClass,
	}
}

func Error(message string) Toast {
	return Toast{
		Message:            message,
		Level:              LevelError,
		DurationMs:         DefaultDurationMs,
		VerticalPosition:   DefaultVerticalPosition,
		HorizontalPosition: DefaultHorizontalPosition,
		PanelClass:         ErrorPanelClass,
	}
}

func (t Toast) WithDuration(ms int) Toast {
	t.DurationMs = ms
	return t
}

func (t Toast) WithAction(action string) Toast {
	t.Action = action
	return t
}

// Notifier delivers toasts to the user owning ctx.
type Notifier interface {
	Notify(ctx context.Context, toast Toast) error
}
