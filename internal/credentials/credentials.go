// Package credentials resolves per-account access tokens and destination ids.
package credentials

import (
	"errors"
	"os"
	"strings"
	"unicode"

	"github.com/jo-hoe/socialpost/internal/common"
	"github.com/jo-hoe/socialpost/internal/payload"
)

var (
	// ErrMissingToken means the account has no access token; the post is skipped.
	ErrMissingToken = errors.New("access token not set")
	// ErrMissingInstagramID means no Instagram destination could be resolved; the post fails.
	ErrMissingInstagramID = errors.New("instagram destination id not set")
)

// Credentials are resolved fresh for every payload and never cached.
type Credentials struct {
	AccessToken string
	InstagramID string
	FacebookID  string // empty skips the Facebook leg
}

// Resolver reads credentials from environment-like lookups.
type Resolver struct {
	Lookup func(key string) (string, bool)
}

// NewResolver returns a Resolver backed by the process environment.
func NewResolver() *Resolver {
	return &Resolver{Lookup: os.LookupEnv}
}

// EnvKey turns an account key into the environment variable prefix: upper
// case, anything outside [A-Z0-9] becomes '_'.
func EnvKey(account string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.TrimSpace(account))
}

// TokenVar returns the name of the access token variable for account.
func TokenVar(account string) string {
	return EnvKey(account) + common.EnvSuffixAccessToken
}

// Resolve returns the credentials for p. The returned Credentials keep
// whatever was resolved even when an error is returned.
func (r *Resolver) Resolve(p payload.Payload) (Credentials, error) {
	key := EnvKey(p.Account)
	var c Credentials
	c.AccessToken = r.get(key + common.EnvSuffixAccessToken)
	c.InstagramID = firstNonEmpty(r.get(key+common.EnvSuffixInstagramID), p.InstagramID)
	c.FacebookID = firstNonEmpty(r.get(key+common.EnvSuffixFacebookID), p.FacebookID)

	if c.AccessToken == "" {
		return c, ErrMissingToken
	}
	if c.InstagramID == "" {
		return c, ErrMissingInstagramID
	}
	return c, nil
}

func (r *Resolver) get(name string) string {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
