// Package twitter implements the X/Twitter adapter (OAuth 2.0 with PKCE, API v2).
package twitter

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

const (
	authEndpoint  = "https://twitter.com/i/oauth2/authorize"
	tokenEndpoint = "https://api.twitter.com/2/oauth2/token"
	apiBase       = "https://api.twitter.com/2"

	tweetsLimit = 25

	// ExtraVerifier is the PrepareState key holding the PKCE code verifier.
	ExtraVerifier = "code_verifier"
)

var defaultScopes = []string{"tweet.read", "users.read", "offline.access"}

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
		return New(cfg, httpx.New(providers.Twitter, opts)), nil
	}
}

func (a *Adapter) Provider() providers.Provider { return providers.Twitter }

func (a *Adapter) Configured() bool { return a.cfg.Configured() }

// PrepareState generates a fresh PKCE verifier (RFC 7636, 43 chars).
func (a *Adapter) PrepareState() (map[string]string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return map[string]string{ExtraVerifier: base64.RawURLEncoding.EncodeToString(b)}, nil
}

// Challenge derives the S256 code challenge for verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (a *Adapter) AuthorizeURL(state string, extra map[string]string) (string, error) {
	verifier := extra[ExtraVerifier]
	if verifier == "" {
		return "", errors.New("twitter: missing PKCE verifier")
	}
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
	q.Set("code_challenge", Challenge(verifier))
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) Exchange(ctx context.Context, code string, extra map[string]string) (*providers.TokenSet, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("redirect_uri", a.cfg.RedirectURL)
	form.Set("code_verifier", extra[ExtraVerifier])

	var tr struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		TokenType    string          `json:"token_type"`
		Scope        string          `json:"scope"`
		ExpiresIn    int             `json:"expires_in"`
		Error        *httpx.APIError `json:"error"`
	}
	err := a.http.PostForm(ctx, a.cfg.TokenURL, form, &tr,
		httpx.WithBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret))
	if err != nil {
		return nil, err
	}
	if tr.Error.Present() {
		return nil, providers.Rejected(providers.Twitter, 0, tr.Error.Error())
	}
	if tr.AccessToken == "" {
		return nil, providers.Rejected(providers.Twitter, 0, "no access_token in response")
	}
	return &providers.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

type publicMetrics struct {
	FollowersCount  int64 `json:"followers_count"`
	TweetCount      int64 `json:"tweet_count"`
	LikeCount       int64 `json:"like_count"`
	RetweetCount    int64 `json:"retweet_count"`
	ReplyCount      int64 `json:"reply_count"`
	ImpressionCount int64 `json:"impression_count"`
}

type user struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Username      string        `json:"username"`
	PublicMetrics publicMetrics `json:"public_metrics"`
}

type apiErrors []struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e apiErrors) message() string {
	if len(e) == 0 {
		return ""
	}
	if e[0].Message != "" {
		return e[0].Message
	}
	return e[0].Detail
}

// Profile returns the username prefixed with "@", which is how the
// account is shown once connected.
func (a *Adapter) Profile(ctx context.Context, tokens *providers.TokenSet) (*providers.Account, error) {
	var me struct {
		Data   *user     `json:"data"`
		Errors apiErrors `json:"errors"`
	}
	if err := a.http.GetJSON(ctx, a.cfg.APIBaseURL+"/users/me", &me, httpx.WithBearer(tokens.AccessToken)); err != nil {
		return nil, err
	}
	if me.Data == nil {
		return nil, providers.Rejected(providers.Twitter, 0, providers.Or(me.Errors.message(), "profile unavailable"))
	}
	return &providers.Account{
		ID:          me.Data.ID,
		Username:    providers.Handle(me.Data.Username),
		DisplayName: me.Data.Name,
	}, nil
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	if cred.ProviderUserID == "" {
		return nil, providers.Rejected(providers.Twitter, 0, "Twitter account id missing, reconnect the account")
	}
	base := a.cfg.APIBaseURL + "/users/" + url.PathEscape(cred.ProviderUserID)
	bearer := httpx.WithBearer(cred.AccessToken)

	var u struct {
		Data   *user     `json:"data"`
		Errors apiErrors `json:"errors"`
	}
	q := url.Values{"user.fields": {"public_metrics,username"}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base, q), &u, bearer); err != nil {
		return nil, err
	}
	if u.Data == nil {
		return nil, providers.Rejected(providers.Twitter, 0, providers.Or(u.Errors.message(), "Failed to fetch Twitter data"))
	}

	var tweets struct {
		Data []struct {
			ID            string        `json:"id"`
			Text          string        `json:"text"`
			CreatedAt     string        `json:"created_at"`
			PublicMetrics publicMetrics `json:"public_metrics"`
		} `json:"data"`
	}
	q = url.Values{
		"max_results":  {strconv.Itoa(tweetsLimit)},
		"tweet.fields": {"created_at,public_metrics,text"},
	}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(base+"/tweets", q), &tweets, bearer); err != nil {
		return nil, err
	}

	var impressions int64
	items := make([]providers.ContentItem, 0, len(tweets.Data))
	for _, t := range tweets.Data {
		m := t.PublicMetrics
		impressions += m.ImpressionCount
		// replies count as comments, retweets as shares
		items = append(items, providers.ContentItem{
			ID:          t.ID,
			Text:        t.Text,
			Likes:       m.LikeCount,
			Comments:    m.ReplyCount,
			Shares:      m.RetweetCount,
			Views:       m.ImpressionCount,
			PublishedAt: providers.ParseTime(t.CreatedAt),
		})
	}
	total := providers.SumEngagements(items)
	followers := u.Data.PublicMetrics.FollowersCount

	return &providers.Analytics{
		Provider:         providers.Twitter,
		Connected:        true,
		Username:         providers.Handle(u.Data.Username),
		Followers:        followers,
		Impressions:      providers.Int64(impressions),
		PostCount:        u.Data.PublicMetrics.TweetCount,
		TotalEngagements: total,
		EngagementRate:   providers.EngagementRate(total, len(items), followers),
		TopContent:       providers.TopContent(items, providers.TopContentLimit),
	}, nil
}
