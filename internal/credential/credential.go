// Package credential reads the bearer token owned by the authentication
// collaborator and decides what to send when it is missing.
package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/kvstore"
)

// DefaultKey is the storage key the token lives under.
const DefaultKey = "auth_token"

// DefaultPlaceholder is what the send policy puts after "Bearer " when no
// token is stored.
const DefaultPlaceholder = "null"

// Source yields the current token. ok is false when none is stored.
type Source interface {
	Token() (token string, ok bool, err error)
}

// StoreSource reads the token from a kvstore on every call so changes made by
// other processes are picked up at dispatch time.
type StoreSource struct {
	store kvstore.Store
	key   string
}

func NewStoreSource(store kvstore.Store, key string) *StoreSource {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &StoreSource{store: store, key: key}
}

func (s *StoreSource) Token() (string, bool, error) {
	data, ok, err := s.store.Get(s.key)
	if err != nil {
		return "", false, errdef.Wrap(errdef.CodeCredential, err, "read credential")
	}
	token := strings.TrimSpace(string(data))
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *StoreSource) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errdef.New(errdef.CodeValidation, "token is empty")
	}
	if err := s.store.Put(s.key, []byte(token)); err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "store credential")
	}
	return nil
}

func (s *StoreSource) Clear() error {
	if err := s.store.Delete(s.key); err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "clear credential")
	}
	return nil
}

// Static is a fixed token, mostly for tests and one-shot CLI use.
type Static string

func (s Static) Token() (string, bool, error) {
	token := strings.TrimSpace(string(s))
	return token, token != "", nil
}

type Policy string

const (
	// PolicySend sends "Bearer <placeholder>" when no token is stored.
	PolicySend Policy = "send"
	// PolicyOmit drops the Authorization header when no token is stored.
	PolicyOmit Policy = "omit"
	// PolicyBlock refuses to dispatch without a token.
	PolicyBlock Policy = "block"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySend:
		return PolicySend, nil
	case PolicyOmit:
		return PolicyOmit, nil
	case PolicyBlock:
		return PolicyBlock, nil
	default:
		return "", errdef.New(errdef.CodeConfig, "unknown credential policy %q", s)
	}
}

// ErrMissing is returned by Authorization under PolicyBlock.
var ErrMissing = errdef.New(errdef.CodeCredential, "missing credential")

// Authorization returns the Authorization header value for token under policy.
// include is false when the header should be left off.
func Authorization(policy Policy, placeholder, token string) (value string, include bool, err error) {
	if token != "" {
		return "Bearer " + token, true, nil
	}
	switch policy {
	case PolicyOmit:
		return "", false, nil
	case PolicyBlock:
		return "", false, ErrMissing
	default:
		if placeholder == "" {
			placeholder = DefaultPlaceholder
		}
		return "Bearer " + placeholder, true, nil
	}
}

// Info is what can be read from a token without verifying it.
type Info struct {
	JWT       bool
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim before now.
func (i Info) Expired(now time.Time) bool {
	return i.JWT && !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect decodes a JWT without checking its signature. Opaque tokens yield
// a zero Info.
func Inspect(token string) Info {
	if strings.Count(token, ".") != 2 {
		return Info{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Info{}
	}
	info := Info{JWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}
