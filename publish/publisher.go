package publish

import (
	"context"
	"fmt"
	"log"
	"strings"

	"curator/types"
)

// Publisher pushes a collected item to a destination. Publish must be safe
// to retry: the caller only marks an item as seen after a successful push,
// so a crash between the two replays the item.
type Publisher interface {
	Publish(ctx context.Context, item *types.CollectedItem, score float64) error
	Name() string
}

// ConsolePublisher writes items to the process log. Used for dry runs and as
// a fallback when no sink is configured.
type ConsolePublisher struct{}

func (ConsolePublisher) Name() string { return "console" }

func (ConsolePublisher) Publish(_ context.Context, item *types.CollectedItem, score float64) error {
	summary := item.Summary
	if summary == "" {
		summary = truncate(item.Content, 200)
	}
	log.Printf("[publish] %s (%.2f) %s | %s", item.Title, score, item.URL, summary)
	return nil
}

// Fanout publishes to every target, collecting failures. An item counts as
// published only if all targets accepted it.
type Fanout struct {
	Targets []Publisher
}

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Publish(ctx context.Context, item *types.CollectedItem, score float64) error {
	var errs []string
	for _, t := range f.Targets {
		if err := t.Publish(ctx, item, score); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", t.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
