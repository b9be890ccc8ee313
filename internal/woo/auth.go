package woo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

var _ auth.Authenticator = (*Client)(nil)

var errMissingID = errors.New("response has no id")

type tokenResponse struct {
	Token           string `json:"token"`
	UserEmail       string `json:"user_email"`
	UserNicename    string `json:"user_nicename"`
	UserDisplayName string `json:"user_display_name"`
}

type customer struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Login exchanges credentials for a JWT through the JWT Authentication
// plugin and resolves the matching WooCommerce customer id.
func (cl *Client) Login(ctx context.Context, c auth.Credentials) (*auth.Grant, error) {
	var tok tokenResponse
	if err := cl.doJSON(ctx, call{
		name:   "login",
		method: http.MethodPost,
		path:   "/wp-json/jwt-auth/v1/token",
		body:   c,
	}, &tok); err != nil {
		return nil, err
	}
	if tok.Token == "" {
		return nil, &DecodeError{Call: "login", Err: errors.New("response has no token")}
	}

	g := &auth.Grant{
		Token: tok.Token,
		User: auth.User{
			Email:       tok.UserEmail,
			DisplayName: tok.UserDisplayName,
			Nicename:    tok.UserNicename,
		},
	}

	// A customer record is optional: administrators can log in too.
	if id, err := cl.customerIDByEmail(ctx, tok.UserEmail); err != nil {
		cl.lg.Warn("Customer lookup failed", zap.String("email", tok.UserEmail), zap.Error(err))
	} else {
		g.User.CustomerID = id
	}
	return g, nil
}

type customerRequest struct {
	Email     string         `json:"email"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Username  string         `json:"username,omitempty"`
	Password  string         `json:"password"`
	Billing   map[string]any `json:"billing,omitempty"`
}

// Register creates a WooCommerce customer and logs it in.
func (cl *Client) Register(ctx context.Context, r auth.Registration) (*auth.Grant, error) {
	first, last := r.FirstName, r.LastName
	if first == "" && last == "" {
		if parts := strings.Fields(r.Name); len(parts) > 0 {
			first, last = parts[0], strings.Join(parts[1:], " ")
		}
	}

	billing := map[string]any{"email": r.Email}
	if r.Phone != "" {
		billing["phone"] = r.Phone
	}
	if first != "" {
		billing["first_name"] = first
	}
	if last != "" {
		billing["last_name"] = last
	}

	var created customer
	if err := cl.doJSON(ctx, call{
		name:   "register",
		method: http.MethodPost,
		path:   "/wp-json/wc/v3/customers",
		body: customerRequest{
			Email:     r.Email,
			FirstName: first,
			LastName:  last,
			Username:  r.Email,
			Password:  r.Password,
			Billing:   billing,
		},
		auth: authConsumer,
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, &DecodeError{Call: "register", Err: errMissingID}
	}

	g, err := cl.Login(ctx, auth.Credentials{Username: r.Email, Password: r.Password})
	if err != nil {
		return nil, errors.Wrap(err, "login after register")
	}
	g.User.CustomerID = created.ID
	return g, nil
}

func (cl *Client) customerIDByEmail(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, nil
	}
	var found []customer
	if err := cl.doJSON(ctx, call{
		name:   "find_customer",
		method: http.MethodGet,
		path:   "/wp-json/wc/v3/customers",
		query:  url.Values{"email": {email}, "role": {"all"}},
		auth:   authConsumer,
	}, &found); err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}
	return found[0].ID, nil
}

// CustomerID returns the WordPress user id behind a bearer token. For
// customers it equals the WooCommerce customer id.
func (cl *Client) CustomerID(ctx context.Context, token string) (int64, error) {
	var me struct {
		ID int64 `json:"id"`
	}
	if err := cl.doJSON(ctx, call{
		name:   "current_user",
		method: http.MethodGet,
		path:   "/wp-json/wp/v2/users/me",
		auth:   authBearer,
		token:  token,
	}, &me); err != nil {
		return 0, err
	}
	if me.ID == 0 {
		return 0, &DecodeError{Call: "current_user", Err: errMissingID}
	}
	return me.ID, nil
}
