// Package captions provides an HTTP client for the Captions AI Ads API.
package captions

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultMediaURL is submitted when a request carries no media URLs, since
// the upstream rejects an empty list. It is a stock placeholder image; teams
// adopting this client should confirm it is an acceptable default.
const DefaultMediaURL = "https://images.unsplash.com/photo-1611224923853-80b023f02d71?w=800&h=600&fit=crop"

// State represents the state of an ad generation operation.
type State string

// Operation states reported by the poll endpoint.
const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateQueued     State = "QUEUED"
	StateComplete   State = "COMPLETE"
	StateFailed     State = "FAILED"
)

// IsTerminal returns true if the state is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// IsInProgress returns true for the states that warrant another poll.
func (s State) IsInProgress() bool {
	switch s {
	case StatePending, StateProcessing, StateQueued:
		return true
	default:
		return false
	}
}

// Resolution is the output resolution of a generated video.
type Resolution string

// Supported resolutions.
const (
	ResolutionFHD Resolution = "fhd"
	ResolutionHD  Resolution = "hd"
	Resolution4K  Resolution = "4k"
)

// Resolutions lists every supported resolution in display order.
var Resolutions = []Resolution{ResolutionFHD, ResolutionHD, Resolution4K}

// ParseResolution reports whether s names a supported resolution, ignoring case.
// Surrounding whitespace is not accepted.
func ParseResolution(s string) (Resolution, bool) {
	r := Resolution(strings.ToLower(s))
	for _, valid := range Resolutions {
		if r == valid {
			return r, true
		}
	}
	return "", false
}

// SubmitRequest contains the parameters of an ad generation job.
type SubmitRequest struct {
	Script      string
	CreatorName string
	MediaURLs   []string // DefaultMediaURL is used when empty
	Resolution  Resolution
	WebhookID   string // Optional
}

// submitRequest represents the request body for /api/ads/submit.
type submitRequest struct {
	Script      string   `json:"script"`
	CreatorName string   `json:"creatorName"`
	MediaURLs   []string `json:"mediaUrls"`
	Resolution  string   `json:"resolution"`
	WebhookID   string   `json:"webhookId,omitempty"`
}

// submitResponse represents the response from /api/ads/submit.
type submitResponse struct {
	OperationID string `json:"operationId"`
}

// pollRequest represents the request body for /api/ads/poll.
type pollRequest struct {
	OperationID string `json:"operationId"`
}

// pollResponse represents the response from /api/ads/poll.
type pollResponse struct {
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// PollResult contains a snapshot of an operation's status.
type PollResult struct {
	State State
	URL   string // Video URL (only set when State is StateComplete)
	Error string // Error detail (only set when State is StateFailed)
}

// Creators is the response of the list-creators endpoint.
type Creators struct {
	Supported  []string                   `json:"supportedCreators"`
	Thumbnails map[string]json.RawMessage `json:"thumbnails"`
}

// Describe returns a printable description of the named creator.
// String thumbnails are returned as-is; any other JSON value is compacted.
func (c Creators) Describe(name string) string {
	raw, ok := c.Thumbnails[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return "No description available"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
