// Package tiktok implements the TikTok adapter (Login Kit v2 + Display API).
//
// TikTok exposes per-video views, so the engagement rate is view based:
// total engagements / total views * 100.
package tiktok

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/httpx"
)

const (
	authEndpoint  = "https://www.tiktok.com/v2/auth/authorize/"
	tokenEndpoint = "https://open.tiktokapis.com/v2/oauth/token/"
	apiBase       = "https://open.tiktokapis.com/v2"

	videosLimit = 20
)

var defaultScopes = []string{"user.info.basic", "video.list"}

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
		return New(cfg, httpx.New(providers.TikTok, opts)), nil
	}
}

func (a *Adapter) Provider() providers.Provider { return providers.TikTok }

func (a *Adapter) Configured() bool { return a.cfg.Configured() }

func (a *Adapter) PrepareState() (map[string]string, error) { return nil, nil }

// AuthorizeURL uses client_key (TikTok's name for the client id).
func (a *Adapter) AuthorizeURL(state string, _ map[string]string) (string, error) {
	u, err := url.Parse(a.cfg.AuthURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_key", a.cfg.ClientID)
	q.Set("scope", strings.Join(a.cfg.Scopes, ","))
	q.Set("response_type", "code")
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) Exchange(ctx context.Context, code string, _ map[string]string) (*providers.TokenSet, error) {
	form := url.Values{}
	form.Set("client_key", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.cfg.RedirectURL)

	var tr struct {
		AccessToken      string          `json:"access_token"`
		RefreshToken     string          `json:"refresh_token"`
		OpenID           string          `json:"open_id"`
		Scope            string          `json:"scope"`
		ExpiresIn        int             `json:"expires_in"`
		TokenType        string          `json:"token_type"`
		Error            *httpx.APIError `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := a.http.PostForm(ctx, a.cfg.TokenURL, form, &tr); err != nil {
		return nil, err
	}
	if tr.Error.Present() {
		return nil, providers.Rejected(providers.TikTok, 0, providers.Or(tr.ErrorDescription, tr.Error.Error()))
	}
	if tr.AccessToken == "" {
		return nil, providers.Rejected(providers.TikTok, 0, "no access_token in response")
	}
	return &providers.TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Scope:        tr.Scope,
		ExpiresIn:    tr.ExpiresIn,
		TokenType:    tr.TokenType,
		UserID:       tr.OpenID,
	}, nil
}

type userInfo struct {
	OpenID        string `json:"open_id"`
	DisplayName   string `json:"display_name"`
	Username      string `json:"username"`
	FollowerCount int64  `json:"follower_count"`
	VideoCount    int64  `json:"video_count"`
}

// handle falls back to the display name when the username scope is missing.
func (u *userInfo) handle() string {
	return providers.Handle(providers.Or(u.Username, u.DisplayName))
}

func (a *Adapter) userInfo(ctx context.Context, token, fields string) (*userInfo, error) {
	var resp struct {
		Data struct {
			User userInfo `json:"user"`
		} `json:"data"`
		Error *httpx.APIError `json:"error"`
	}
	q := url.Values{"fields": {fields}}
	if err := a.http.GetJSON(ctx, httpx.WithQuery(a.cfg.APIBaseURL+"/user/info/", q), &resp, httpx.WithBearer(token)); err != nil {
		return nil, err
	}
	if resp.Error.Present() {
		return nil, providers.Rejected(providers.TikTok, 0, resp.Error.Error())
	}
	return &resp.Data.User, nil
}

func (a *Adapter) Profile(ctx context.Context, tokens *providers.TokenSet) (*providers.Account, error) {
	u, err := a.userInfo(ctx, tokens.AccessToken, "open_id,display_name,username")
	if err != nil {
		return nil, err
	}
	return &providers.Account{
		ID:          providers.Or(u.OpenID, tokens.UserID),
		Username:    u.handle(),
		DisplayName: u.DisplayName,
	}, nil
}

type video struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CreateTime    int64  `json:"create_time"`
	CoverImageURL string `json:"cover_image_url"`
	LikeCount     int64  `json:"like_count"`
	CommentCount  int64  `json:"comment_count"`
	ShareCount    int64  `json:"share_count"`
	ViewCount     int64  `json:"view_count"`
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	u, err := a.userInfo(ctx, cred.AccessToken, "open_id,display_name,username,follower_count,following_count,likes_count,video_count")
	if err != nil {
		return nil, err
	}

	var list struct {
		Data struct {
			Videos []video `json:"videos"`
		} `json:"data"`
		Error *httpx.APIError `json:"error"`
	}
	q := url.Values{"fields": {"id,title,create_time,cover_image_url,duration,like_count,comment_count,share_count,view_count"}}
	err = a.http.PostJSON(ctx, httpx.WithQuery(a.cfg.APIBaseURL+"/video/list/", q),
		map[string]int{"max_count": videosLimit}, &list, httpx.WithBearer(cred.AccessToken))
	if err != nil {
		return nil, err
	}
	if list.Error.Present() {
		return nil, providers.Rejected(providers.TikTok, 0, list.Error.Error())
	}

	var views int64
	items := make([]providers.ContentItem, 0, len(list.Data.Videos))
	for _, v := range list.Data.Videos {
		views += v.ViewCount
		items = append(items, providers.ContentItem{
			ID:          v.ID,
			Text:        v.Title,
			ImageURL:    v.CoverImageURL,
			Likes:       v.LikeCount,
			Comments:    v.CommentCount,
			Shares:      v.ShareCount,
			Views:       v.ViewCount,
			PublishedAt: time.Unix(v.CreateTime, 0).UTC(),
		})
	}
	total := providers.SumEngagements(items)

	return &providers.Analytics{
		Provider:         providers.TikTok,
		Connected:        true,
		Username:         u.handle(),
		Followers:        u.FollowerCount,
		Impressions:      providers.Int64(views),
		Reach:            providers.Int64(views),
		PostCount:        u.VideoCount,
		TotalEngagements: total,
		EngagementRate:   providers.ViewRate(total, views),
		TopContent:       providers.TopContent(items, providers.TopContentLimit),
	}, nil
}
