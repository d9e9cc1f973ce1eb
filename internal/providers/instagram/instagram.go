// Package instagram implements the Instagram adapter (Basic Display API
// for login, Graph API for account counters and media insights).
package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

const (
	authEndpoint  = "https://api.instagram.com/oauth/authorize"
	tokenEndpoint = "https://api.instagram.com/oauth/access_token"
	apiBase       = "https://graph.instagram.com"

	mediaLimit = 25
)

var defaultScopes = []string{"user_profile", "user_media"}

// Adapter talks to Instagram.
type Adapter struct {
	cfg  providers.Config
	http *httpx.Client
}

// New creates the adapter. client is shared by all calls and carries the breaker.
func New(cfg providers.Config, client *httpx.Client) *Adapter {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes
	}
	cfg.AuthURL = providers.Or(cfg.AuthURL, authEndpoint)
	cfg.TokenURL = providers.Or(cfg.TokenURL, tokenEndpoint)
	cfg.APIBaseURL = strings.TrimRight(providers.Or(cfg.APIBaseURL, apiBase), "/")
	return &Adapter{cfg: cfg, http: client}
}

// Factory adapts New to providers.Factory.
func Factory(opts httpx.Options) providers.Factory {
	return func(cfg providers.Config) (providers.Adapter, error) {
		return New(cfg, httpx.New(providers.Instagram, opts)), nil
	}
}

func (a *Adapter) Provider() providers.Provider { return providers.Instagram }

func (a *Adapter) Configured() bool { return a.cfg.Configured() }

func (a *Adapter) PrepareState() (map[string]string, error) { return nil, nil }

func (a *Adapter) AuthorizeURL(state string, _ map[string]string) (string, error) {
	u, err := url.Parse(a.cfg.AuthURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("scope", strings.Join(a.cfg.Scopes, ","))
	q.Set("response_type", "code")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	UserID      json.Number     `json:"user_id"`
	Error       *httpx.APIError `json:"error"`
}

func (a *Adapter) Exchange(ctx context.Context, code string, _ map[string]string) (*providers.TokenSet, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.cfg.RedirectURL)
	form.Set("code", code)

	var tr tokenResponse
	if err := a.http.PostForm(ctx, a.cfg.TokenURL, form, &tr); err != nil {
		return nil, err
	}
	if tr.Error.Present() {
		return nil, providers.Rejected(providers.Instagram, 0, tr.Error.Error())
	}
	if tr.AccessToken == "" {
		return nil, providers.Rejected(providers.Instagram, 0, "no access_token in response")
	}
	return &providers.TokenSet{AccessToken: tr.AccessToken, UserID: tr.UserID.String()}, nil
}

func (a *Adapter) Profile(ctx context.Context, tokens *providers.TokenSet) (*providers.Account, error) {
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	q := url.Values{"fields": {"id,username"}, "access_token": {tokens.AccessToken}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(a.cfg.APIBaseURL+"/me", q), &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		me.ID = tokens.UserID
	}
	return &providers.Account{ID: me.ID, Username: me.Username}, nil
}

type media struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
	Insights      struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	} `json:"insights"`
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	userID := cred.ProviderUserID
	if userID == "" {
		userID = "me"
	}
	base := a.cfg.APIBaseURL + "/" + url.PathEscape(userID)

	var profile struct {
		Username       string `json:"username"`
		FollowersCount int64  `json:"followers_count"`
		MediaCount     int64  `json:"media_count"`
	}
	q := url.Values{"fields": {"username,followers_count,media_count"}, "access_token": {cred.AccessToken}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base, q), &profile); err != nil {
		return nil, err
	}

	var page struct {
		Data []media `json:"data"`
	}
	q = url.Values{
		"fields":       {"id,caption,media_type,media_url,timestamp,like_count,comments_count,insights.metric(impressions,reach,engagement)"},
		"limit":        {strconv.Itoa(mediaLimit)},
		"access_token": {cred.AccessToken},
	}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base+"/media", q), &page); err != nil {
		return nil, err
	}

	var impressions, reach int64
	items := make([]providers.ContentItem, 0, len(page.Data))
	for _, m := range page.Data {
		for _, in := range m.Insights.Data {
			if len(in.Values) == 0 {
				continue
			}
			switch in.Name {
			case "impressions":
				impressions += in.Values[0].Value
			case "reach":
				reach += in.Values[0].Value
			}
		}
		items = append(items, providers.ContentItem{
			ID:          m.ID,
			Text:        m.Caption,
			ImageURL:    m.MediaURL,
			Likes:       m.LikeCount,
			Comments:    m.CommentsCount,
			PublishedAt: providers.ParseTime(m.Timestamp),
		})
	}
	total := providers.SumEngagements(items)

	return &providers.Analytics{
		Provider:         providers.Instagram,
		Connected:        true,
		Username:         profile.Username,
		Followers:        profile.FollowersCount,
		Impressions:      providers.Int64(impressions),
		Reach:            providers.Int64(reach),
		PostCount:        profile.MediaCount,
		TotalEngagements: total,
		EngagementRate:   providers.EngagementRate(total, len(items), profile.FollowersCount),
		TopContent:       providers.TopContent(items, providers.TopContentLimit),
	}, nil
}
