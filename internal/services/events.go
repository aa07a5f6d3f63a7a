package services

import (
	"log/slog"
	"time"

	"github.com/goccy/go-json"
)

// Routing keys of article lifecycle events.
const (
	EventArticleCreated = "article.created"
	EventArticleUpdated = "article.updated"
	EventArticleDeleted = "article.deleted"
)

// EventPublisher delivers domain events to a broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ArticleEvent is the payload published after an article write commits.
type ArticleEvent struct {
	Event      string    `json:"event"`
	Slug       string    `json:"slug"`
	AuthorID   string    `json:"author_id"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishArticleEvent is best effort: the write has already committed, so
// failures are logged and swallowed.
func publishArticleEvent(p EventPublisher, event ArticleEvent) {
	if p == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal article event", "event", event.Event, "err", err)
		return
	}
	if err := p.Publish(event.Event, body); err != nil {
		slog.Warn("failed to publish article event", "event", event.Event, "slug", event.Slug, "err", err)
	}
}
