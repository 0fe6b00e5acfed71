package saved

import "github.com/unkn0wn-root/reqbox/internal/draft"

// Defaults is the collection a fresh install starts with.
func Defaults() []Request {
	return []Request{
		{
			ID:     "default-health",
			Name:   "Service Health",
			Method: draft.MethodGet,
			Path:   "/v1/health",
		},
		{
			ID:       "default-scramble",
			Name:     "Scramble Text",
			Method:   draft.MethodPost,
			Path:     "/v1/text/scramble",
			BodyText: `{"text":"Hello World"}`,
			Headers: []draft.HeaderEntry{
				{Key: "Content-Type", Value: "application/json", Enabled: true},
			},
		},
		{
			ID:     "default-me",
			Name:   "Current User",
			Method: draft.MethodGet,
			Path:   "/v1/users/me",
		},
	}
}
