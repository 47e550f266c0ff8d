package status

import (
	"fmt"
	"time"

	"github.com/minerva-brain/backend/internal/models"
)

// ExpressionInput carries the signals the mood engine looks at.
type ExpressionInput struct {
	PendingCount    int
	MissedCount     int
	FailingServices []string
	NextLabel       *string
}

// ComputeExpression decides the display's mood for a moment in time.
// The hour is taken from now's location, so callers must pass a time
// already shifted to the device timezone.
func ComputeExpression(now time.Time, in ExpressionInput) models.Expression {
	hour := now.Hour()
	anyDown := len(in.FailingServices) > 0

	// Quiet hours: only a real outage is worth waking anyone up for.
	if hour >= 1 && hour <= 5 {
		if anyDown {
			return models.Expression{
				State:   models.ExpressionAlert,
				Message: fmt.Sprintf("%s down (night alert)", in.FailingServices[0]),
			}
		}
		return models.Expression{State: models.ExpressionSleepy, Message: "Quiet hours..."}
	}

	// Outages dominate everything else.
	if anyDown {
		return models.Expression{
			State:   models.ExpressionWarning,
			Message: fmt.Sprintf("%s down!", in.FailingServices[0]),
		}
	}

	if in.MissedCount > 0 {
		return models.Expression{State: models.ExpressionAlert, Message: "You missed some reminders."}
	}

	if in.PendingCount > 0 {
		if in.NextLabel != nil {
			return models.Expression{
				State:   models.ExpressionFocused,
				Message: fmt.Sprintf("Next: %s", *in.NextLabel),
			}
		}
		return models.Expression{State: models.ExpressionFocused, Message: "You have pending reminders."}
	}

	return models.Expression{State: models.ExpressionHappy, Message: "All good!"}
}
