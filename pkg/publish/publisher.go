// Package publish uploads finished artifact bodies to the content store
// under namespaced keys and materializes the artifact metadata record.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentmill/pkg/domain"
	"contentmill/pkg/store"
)

// Subtypes describe the artifact body format.
const (
	SubtypeText     = "txt"
	SubtypeMarkdown = "markdown"
	SubtypeJSON     = "json"
)

var errEmptyBody = errors.New("artifact body is empty")

func extensionFor(subtype string) string {
	switch subtype {
	case SubtypeMarkdown:
		return "md"
	case SubtypeJSON:
		return "json"
	default:
		return "txt"
	}
}

func contentTypeFor(subtype string) string {
	switch subtype {
	case SubtypeMarkdown:
		return "text/markdown"
	case SubtypeJSON:
		return "application/json"
	default:
		return "text/plain"
	}
}

// Publisher writes artifact bodies to the content store.
type Publisher struct {
	store store.ContentStore
}

// NewPublisher creates a Publisher on top of the given store.
func NewPublisher(s store.ContentStore) *Publisher {
	return &Publisher{store: s}
}

// Request describes one artifact to publish.
type Request struct {
	Dest      domain.Destination
	Body      string
	Subtype   string
	Title     string
	Date      string
	Type      string
	OriginURL string
}

// Publish uploads the body under a fresh key scoped to the destination
// account and collection, and returns the artifact record describing it.
func (p *Publisher) Publish(ctx context.Context, req Request) (*domain.Artifact, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, errEmptyBody
	}

	id := uuid.NewString()
	ext := extensionFor(req.Subtype)
	key := fmt.Sprintf("%s/%s/%s.%s", req.Dest.AccountID, req.Dest.CollectionID, id, ext)

	link, err := p.store.Put(ctx, key, []byte(req.Body), contentTypeFor(req.Subtype))
	if err != nil {
		return nil, fmt.Errorf("publish artifact %s: %w", key, err)
	}

	return &domain.Artifact{
		ID:        id,
		Title:     req.Title,
		Date:      req.Date,
		Status:    "success",
		Link:      link,
		Type:      req.Type,
		Subtype:   req.Subtype,
		Length:    len(strings.Fields(req.Body)),
		OriginURL: req.OriginURL,
		CreatedAt: time.Now().UTC(),
	}, nil
}
