// Package payload reads the pre-generated post descriptions waiting to be published.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload is one candidate post as written by the upstream generator.
type Payload struct {
	Account     string    `json:"compte"`
	PublishID   string    `json:"pub_id"`
	ImageURL    string    `json:"image_url"`
	Caption     string    `json:"caption"`
	NextTime    EpochTime `json:"next_time"`
	InstagramID string    `json:"instagram_id,omitempty"` // used only without an env override
	FacebookID  string    `json:"facebook_id,omitempty"`  // used only without an env override

	hasCaption bool
}

// UnmarshalJSON records whether the caption key was present; an empty caption is allowed.
func (p *Payload) UnmarshalJSON(b []byte) error {
	type plain Payload
	aux := struct {
		*plain
		Caption *string `json:"caption"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.hasCaption = aux.Caption != nil
	if aux.Caption != nil {
		p.Caption = *aux.Caption
	}
	return nil
}

// EpochTime is a unix timestamp in seconds. It decodes from a JSON number or a numeric string.
type EpochTime int64

// UnmarshalJSON implements json.Unmarshaler.
func (e *EpochTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return errors.New("next_time is empty")
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*e = EpochTime(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("next_time %q is not an epoch timestamp", s)
	}
	*e = EpochTime(int64(f))
	return nil
}

// Time converts e to a UTC time.
func (e EpochTime) Time() time.Time {
	return time.Unix(int64(e), 0).UTC()
}

// ErrInvalid marks a payload that is missing required fields.
var ErrInvalid = errors.New("invalid payload")

// Decode parses and validates a single payload document.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Validate checks that every required key carries a value.
func (p Payload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Account) == "" {
		missing = append(missing, "compte")
	}
	if strings.TrimSpace(p.PublishID) == "" {
		missing = append(missing, "pub_id")
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		missing = append(missing, "image_url")
	}
	if p.NextTime == 0 {
		missing = append(missing, "next_time")
	}
	if !p.hasCaption {
		missing = append(missing, "caption")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}

// ScheduledAt is the earliest time the post may go out.
func (p Payload) ScheduledAt() time.Time {
	return p.NextTime.Time()
}

// Due reports whether the post may be published at now. Comparison is in epoch seconds.
func (p Payload) Due(now time.Time) bool {
	return int64(p.NextTime) <= now.Unix()
}
