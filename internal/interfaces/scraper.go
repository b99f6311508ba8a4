package interfaces

import (
	"context"
	"encoding/json"

	"github.com/viewdeck/viewdeck/internal/models"
)

// ActorRequest describes one scraping-actor invocation
type ActorRequest struct {
	// ActorID is the externally-hosted scraping job definition to run
	ActorID string
	// Input is the actor's structured input payload
	Input map[string]interface{}
}

// ActorClient runs scraping actors and returns their result items.
// Implementations try the synchronous run endpoint first and fall back to
// the async submit-then-poll protocol.
type ActorClient interface {
	RunActor(ctx context.Context, req *ActorRequest) ([]json.RawMessage, error)
}

// PlatformAdapter builds scraper requests and normalizes raw actor output
// into canonical records. Parsing is a pure transform: deterministic, total,
// and never panics; worst case yields empty/zero fields.
type PlatformAdapter interface {
	Platform() models.Platform
	// Flaky reports whether the platform's actors fail transiently often
	// enough to warrant wrapping calls in the retry policy
	Flaky() bool
	BuildProfileRequest(username string) (*ActorRequest, error)
	BuildVideoRequest(url string) (*ActorRequest, error)
	ParseVideos(items []json.RawMessage) ([]*models.CanonicalVideo, error)
	ParseProfile(items []json.RawMessage) (*models.CanonicalProfile, error)
}

// DirectFetcher is implemented by adapters whose platform offers a
// first-party metadata API, bypassing the generic actor service.
type DirectFetcher interface {
	FetchVideo(ctx context.Context, url string) (*models.CanonicalVideo, error)
	FetchProfile(ctx context.Context, username string) (*models.CanonicalProfile, error)
}
