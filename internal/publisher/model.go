package publisher

import (
	"context"

	"github.com/jo-hoe/socialpost/internal/credentials"
	"github.com/jo-hoe/socialpost/internal/payload"
)

// Stage represents where a payload is in the publish sequence.
type Stage string

const (
	StagePending            Stage = "pending"
	StageDueCheck           Stage = "due_check"
	StageInstagramContainer Stage = "instagram_container"
	StageInstagramPublish   Stage = "instagram_publish"
	StageFacebookPublish    Stage = "facebook_publish"
	StageCommitted          Stage = "committed"
	StageSkipped            Stage = "skipped"
	StageFailed             Stage = "failed"
)

// Platform is the Graph API surface used to publish one post.
type Platform interface {
	CreateContainer(ctx context.Context, instagramID, imageURL, caption, token string) (string, error)
	PublishContainer(ctx context.Context, instagramID, creationID, token string) (string, error)
	PublishPhoto(ctx context.Context, pageID, imageURL, caption, token string) (string, error)
}

// CredentialResolver maps a payload's account onto its token and destination ids.
type CredentialResolver interface {
	Resolve(p payload.Payload) (credentials.Credentials, error)
}
