// Package linkedin implements the LinkedIn adapter.
//
// The self-serve API tier exposes the member profile only; follower and
// post statistics need Marketing API access. FetchAnalytics therefore
// validates the token against /me and returns zeroed metrics with a note.
package linkedin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

const (
	authEndpoint  = "https://www.linkedin.com/oauth/v2/authorization"
	tokenEndpoint = "https://www.linkedin.com/oauth/v2/accessToken"
	apiBase       = "https://api.linkedin.com/v2"

	// RestrictedNote is attached to every LinkedIn analytics result.
	RestrictedNote = "Full analytics require LinkedIn Marketing API access. Connect your LinkedIn company page for detailed metrics."
)

var defaultScopes = []string{"r_liteprofile", "r_basicprofile", "r_organization_social"}

type Adapter struct {
	cfg  providers.Config
	http *httpx.Client
}

func New(cfg providers.Config, client *httpx.Client) *Adapter {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes
	}
	cfg.AuthURL = providers.Or(cfg.AuthURL, authEndpoint)
	cfg.TokenURL = providers.Or(cfg.TokenURL, tokenEndpoint)
	cfg.APIBaseURL = strings.TrimRight(providers.Or(cfg.APIBaseURL, apiBase), "/")
	return &Adapter{cfg: cfg, http: client}
}

func Factory(opts httpx.Options) providers.Factory {
	return func(cfg providers.Config) (providers.Adapter, error) {
		return New(cfg, httpx.New(providers.LinkedIn, opts)), nil
	}
}

func (a *Adapter) Provider() providers.Provider { return providers.LinkedIn }

func (a *Adapter) Configured() bool { return a.cfg.Configured() }

func (a *Adapter) PrepareState() (map[string]string, error) { return nil, nil }

func (a *Adapter) AuthorizeURL(state string, _ map[string]string) (string, error) {
	u, err := url.Parse(a.cfg.AuthURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("scope", strings.Join(a.cfg.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) Exchange(ctx context.Context, code string, _ map[string]string) (*providers.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("redirect_uri", a.cfg.RedirectURL)

	var tr struct {
		AccessToken      string          `json:"access_token"`
		ExpiresIn        int             `json:"expires_in"`
		RefreshToken     string          `json:"refresh_token"`
		Error            *httpx.APIError `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := a.http.PostForm(ctx, a.cfg.TokenURL, form, &tr); err != nil {
		return nil, err
	}
	if tr.Error.Present() {
		return nil, providers.Rejected(providers.LinkedIn, 0, providers.Or(tr.ErrorDescription, tr.Error.Error()))
	}
	if tr.AccessToken == "" {
		return nil, providers.Rejected(providers.LinkedIn, 0, "no access_token in response")
	}
	return &providers.TokenSet{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken, ExpiresIn: tr.ExpiresIn}, nil
}

type member struct {
	ID                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
	LocalizedLastName  string `json:"localizedLastName"`
}

func (m member) name() string {
	return strings.TrimSpace(m.LocalizedFirstName + " " + m.LocalizedLastName)
}

// v2 endpoints reject Rest.li 1.0 style requests.
const restliVersion = "2.0.0"

func (a *Adapter) me(ctx context.Context, token string) (*member, error) {
	var m member
	err := a.http.GetJSON(ctx, a.cfg.APIBaseURL+"/me", &m,
		httpx.WithBearer(token), httpx.WithHeader("X-Restli-Protocol-Version", restliVersion))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *Adapter) Profile(ctx context.Context, tokens *providers.TokenSet) (*providers.Account, error) {
	m, err := a.me(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	return &providers.Account{ID: m.ID, DisplayName: m.name()}, nil
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	m, err := a.me(ctx, cred.AccessToken)
	if err != nil {
		var ue *providers.UpstreamError
		if errors.As(err, &ue) && (ue.Status == http.StatusUnauthorized || ue.Status == http.StatusForbidden) {
			return nil, providers.Rejected(providers.LinkedIn, ue.Status, "LinkedIn token expired or invalid")
		}
		return nil, err
	}
	return &providers.Analytics{
		Provider:   providers.LinkedIn,
		Connected:  true,
		Username:   m.name(),
		TopContent: []providers.ContentItem{},
		Note:       RestrictedNote,
	}, nil
}
