// Package auth holds the storefront customer session and its client-side
// store. The bearer token is issued by the commerce backend and treated as
// opaque, apart from an optional expiry claim.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingCredentials is returned before any network call when the
	// username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrIncompleteGrant is returned when the backend reports success but
	// omits the token or the user.
	ErrIncompleteGrant = errors.New("auth response is missing token or user")
)

// User is the customer identity returned on login.
type User struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Nicename    string `json:"nicename"`
	CustomerID  int64  `json:"customer_id"`
}

// Session is the persisted login state. Token and User are either both set
// or both empty.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`

	// Ready becomes true once the persisted session has been loaded.
	Ready bool `json:"-"`
	// ExpiresAt is the token's exp claim, zero when the token carries none.
	ExpiresAt time.Time `json:"-"`
}

// LoggedIn reports whether the session carries a token.
func (s Session) LoggedIn() bool {
	return s.Token != "" && s.User != nil
}

// Clone returns a copy that does not share the User pointer.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration are the sign-up form fields.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Grant is a successful login or registration.
type Grant struct {
	Token string
	User  User
}

// Authenticator performs the network side of login and registration.
type Authenticator interface {
	Login(ctx context.Context, c Credentials) (*Grant, error)
	Register(ctx context.Context, r Registration) (*Grant, error)
}

// TokenExpiry extracts the exp claim from a JWT without verifying it. Tokens
// that are not JWTs or carry no exp claim report ok=false.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}
