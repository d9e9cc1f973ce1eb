// Package facebook implements the Facebook adapter. Analytics are read
// from the first Page the user manages, falling back to the user node.
package facebook

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

const (
	graphVersion  = "v18.0"
	authEndpoint  = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/" + graphVersion + "/oauth/access_token"
	apiBase       = "https://graph.facebook.com/" + graphVersion

	postsLimit = 25
)

var defaultScopes = []string{"pages_read_engagement", "pages_show_list", "read_insights"}

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
		return New(cfg, httpx.New(providers.Facebook, opts)), nil
	}
}

func (a *Adapter) Provider() providers.Provider { return providers.Facebook }

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

// Exchange uses the GET form of the Graph token endpoint.
func (a *Adapter) Exchange(ctx context.Context, code string, _ map[string]string) (*providers.TokenSet, error) {
	q := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"redirect_uri":  {a.cfg.RedirectURL},
		"code":          {code},
	}
	var tr struct {
		AccessToken string          `json:"access_token"`
		TokenType   string          `json:"token_type"`
		ExpiresIn   int             `json:"expires_in"`
		Error       *httpx.APIError `json:"error"`
	}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(a.cfg.TokenURL, q), &tr); err != nil {
		return nil, err
	}
	if tr.Error.Present() {
		return nil, providers.Rejected(providers.Facebook, 0, tr.Error.Error())
	}
	if tr.AccessToken == "" {
		return nil, providers.Rejected(providers.Facebook, 0, "no access_token in response")
	}
	return &providers.TokenSet{AccessToken: tr.AccessToken, TokenType: tr.TokenType, ExpiresIn: tr.ExpiresIn}, nil
}

func (a *Adapter) Profile(ctx context.Context, tokens *providers.TokenSet) (*providers.Account, error) {
	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	q := url.Values{"fields": {"id,name"}, "access_token": {tokens.AccessToken}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(a.cfg.APIBaseURL+"/me", q), &me); err != nil {
		return nil, err
	}
	return &providers.Account{ID: me.ID, DisplayName: me.Name}, nil
}

type summary struct {
	Summary struct {
		TotalCount int64 `json:"total_count"`
	} `json:"summary"`
}

type post struct {
	ID          string  `json:"id"`
	Message     string  `json:"message"`
	CreatedTime string  `json:"created_time"`
	Likes       summary `json:"likes"`
	Comments    summary `json:"comments"`
	Shares      struct {
		Count int64 `json:"count"`
	} `json:"shares"`
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	q := url.Values{"access_token": {cred.AccessToken}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(a.cfg.APIBaseURL+"/me/accounts", q), &pages); err != nil {
		return nil, err
	}

	nodeID, token := cred.ProviderUserID, cred.AccessToken
	if len(pages.Data) > 0 {
		nodeID = pages.Data[0].ID
		if pages.Data[0].AccessToken != "" {
			token = pages.Data[0].AccessToken
		}
	}
	if nodeID == "" {
		nodeID = "me"
	}
	base := a.cfg.APIBaseURL + "/" + url.PathEscape(nodeID)

	var node struct {
		FanCount       int64  `json:"fan_count"`
		FollowersCount int64  `json:"followers_count"`
		Name           string `json:"name"`
	}
	q = url.Values{"fields": {"fan_count,followers_count,name"}, "access_token": {token}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base, q), &node); err != nil {
		return nil, err
	}

	var feed struct {
		Data []post `json:"data"`
	}
	q = url.Values{
		"fields":       {"id,message,created_time,likes.summary(true),comments.summary(true),shares"},
		"limit":        {strconv.Itoa(postsLimit)},
		"access_token": {token},
	}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base+"/posts", q), &feed); err != nil {
		return nil, err
	}

	items := make([]providers.ContentItem, 0, len(feed.Data))
	for _, p := range feed.Data {
		items = append(items, providers.ContentItem{
			ID:          p.ID,
			Text:        p.Message,
			Likes:       p.Likes.Summary.TotalCount,
			Comments:    p.Comments.Summary.TotalCount,
			Shares:      p.Shares.Count,
			PublishedAt: providers.ParseTime(p.CreatedTime),
		})
	}
	total := providers.SumEngagements(items)

	followers := node.FollowersCount
	if followers == 0 {
		followers = node.FanCount
	}

	return &providers.Analytics{
		Provider:         providers.Facebook,
		Connected:        true,
		Username:         node.Name,
		Followers:        followers,
		PostCount:        int64(len(items)),
		TotalEngagements: total,
		EngagementRate:   providers.EngagementRate(total, len(items), followers),
		TopContent:       providers.TopContent(items, providers.TopContentLimit),
	}, nil
}
