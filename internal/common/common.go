package common

// Shared constants to enforce DRY and avoid magic strings/numbers.

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Graph API
const (
	DefaultGraphBaseURL = "https://graph.facebook.com"
	DefaultGraphVersion = "v23.0"

	GraphEdgeMedia        = "media"
	GraphEdgeMediaPublish = "media_publish"
	GraphEdgePhotos       = "photos"
)

// Per-account environment variable suffixes. The full name is
// "<ACCOUNT>" + suffix, e.g. DEMO_ACCESS_TOKEN.
const (
	EnvSuffixAccessToken = "_ACCESS_TOKEN" // #nosec G101 - env var name suffix, not a credential
	EnvSuffixInstagramID = "_INSTAGRAM_ID"
	EnvSuffixFacebookID  = "_FACEBOOK_ID"
)

// Defaults and limits
const (
	DefaultRetryAttempts = 3
	SQLiteBusyTimeoutMS  = 5000
)

// Git related constants
const (
	GitExecutable = "git"
	GitRemoteName = "origin"
)

// File and directory names
const (
	PayloadExtension    = ".json"
	DefaultPayloadDir   = "instagram_payloads"
	DefaultLedgerFile   = "published.json"
	DefaultToPublishDir = "to_publish"
)

// Ledger backends
const (
	LedgerBackendJSON   = "json"
	LedgerBackendSQLite = "sqlite"
)

// Sync types
const (
	SyncTypeGit    = "git"
	SyncTypeGitHub = "github"
	SyncTypeNone   = "none"
)
