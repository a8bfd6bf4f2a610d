package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/pkg/utils"
)

// Formatter renders the operator-facing notification text. Message styling
// lives outside the pipeline; the queue only needs something to hand to the
// deliverer.
type Formatter interface {
	FormatArrival(event *types.Arrival) string
}

// Deliverer sends one rendered notification to the operator. Implementations
// must return an error only when the notification did not reach the
// operator; the queue commits dedup state on a nil return.
type Deliverer interface {
	Deliver(ctx context.Context, event *types.Arrival, content string) error
}

// TextFormatter is the default plain text rendering.
type TextFormatter struct{}

// FormatArrival renders a compact multi-line summary of the arrival.
func (TextFormatter) FormatArrival(event *types.Arrival) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New member detected in **%s**\n", event.CommunityName)
	fmt.Fprintf(&b, "Username: %s", event.Username)

	if event.DisplayName != "" && event.DisplayName != event.Username {
		fmt.Fprintf(&b, " (%s)", event.DisplayName)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Account age: %s\n", utils.FormatAccountAge(event.AccountAgeDays))
	fmt.Fprintf(&b, "Detected via: %s\n", event.SourceTag)
	fmt.Fprintf(&b, "Observed at: %s", event.ObservedAt.Format("2006-01-02 15:04:05 UTC"))

	return b.String()
}
