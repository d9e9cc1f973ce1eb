package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialpulse/internal/audit"
	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/oauth"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/metrics"
	"github.com/dropDatabas3/socialpulse/internal/notify"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/repository"
)

// Messages delivered to the opener on callback failures. Expired, replayed
// and forged states all report the same text.
const (
	MsgMissingParams  = "Missing code or state"
	MsgInvalidState   = "Invalid state"
	MsgCallbackFailed = "Callback failed"
	MsgUnknown        = "Unknown platform"
	MsgNotConfigured  = "Provider not configured"
	MsgRateLimited    = "Too many requests"
)

// BrokerService drives the per-provider connection lifecycle.
type BrokerService interface {
	Initiate(ctx context.Context, user *identity.UserIdentity, provider string) (*dto.InitiateResponse, error)
	Callback(ctx context.Context, req dto.CallbackRequest) notify.Message
	Disconnect(ctx context.Context, user *identity.UserIdentity, provider string) error
	Status(ctx context.Context, user *identity.UserIdentity) (*dto.StatusResponse, error)
}

type brokerService struct {
	deps Deps
}

// NewBrokerService creates a BrokerService.
func NewBrokerService(d Deps) BrokerService {
	if d.StateTTL <= 0 {
		d.StateTTL = DefaultStateTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &brokerService{deps: d}
}

// Initiate stores a fresh single-use state and returns the consent URL.
// Nothing is sent to the provider here.
func (s *brokerService) Initiate(ctx context.Context, user *identity.UserIdentity, provider string) (*dto.InitiateResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.broker"),
		logger.Op("Initiate"),
	)

	p, err := providers.Parse(provider)
	if err != nil {
		return nil, err
	}
	a, err := adapterFor(s.deps.Adapters, p)
	if err != nil {
		log.Error("provider not configured", logger.Provider(p.String()))
		return nil, err
	}

	extra, err := a.PrepareState()
	if err != nil {
		return nil, fmt.Errorf("prepare state: %w", err)
	}
	state := uuid.NewString()
	authURL, err := a.AuthorizeURL(state, extra)
	if err != nil {
		return nil, fmt.Errorf("build authorize url: %w", err)
	}

	st := repository.OAuthState{
		Token:     state,
		UserID:    user.ID,
		Provider:  p.String(),
		Extra:     extra,
		CreatedAt: s.deps.Now().UTC(),
	}
	if err := s.deps.Store.SaveState(ctx, st, s.deps.StateTTL); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	metrics.IncOAuthFlow(p.String(), "initiated")
	log.Info("oauth flow initiated", logger.Provider(p.String()))
	return &dto.InitiateResponse{AuthURL: authURL, State: state}, nil
}

// Callback never returns an error: every outcome is a notification for
// the popup. A provider-reported error short-circuits before the state is
// looked up and before any credential write.
func (s *brokerService) Callback(ctx context.Context, req dto.CallbackRequest) notify.Message {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.broker"),
		logger.Op("Callback"),
	)

	p, err := providers.Parse(req.Provider)
	if err != nil {
		return notify.Failure(providers.Provider(req.Provider), MsgUnknown)
	}
	log = log.With(logger.Provider(p.String()))

	if req.Error != "" {
		log.Info("provider reported error", logger.String("error", req.Error), logger.String("error_description", req.ErrorDescription))
		metrics.IncOAuthFlow(p.String(), "denied")
		return notify.Failure(p, req.Error)
	}
	if req.Code == "" || req.State == "" {
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, MsgMissingParams)
	}

	st, err := s.deps.Store.TakeState(ctx, req.State)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			metrics.IncOAuthFlow(p.String(), "invalid_state")
			return notify.Failure(p, MsgInvalidState)
		}
		log.Error("state lookup failed", logger.Err(err))
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, MsgCallbackFailed)
	}
	if st.Provider != p.String() || st.UserID == "" {
		log.Warn("state bound to another provider", logger.String("state_provider", st.Provider))
		metrics.IncOAuthFlow(p.String(), "invalid_state")
		return notify.Failure(p, MsgInvalidState)
	}
	log = log.With(logger.UserID(st.UserID))

	a, err := adapterFor(s.deps.Adapters, p)
	if err != nil {
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, MsgNotConfigured)
	}

	tokens, err := a.Exchange(ctx, req.Code, st.Extra)
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, callbackMessage(err))
	}
	acct, err := a.Profile(ctx, tokens)
	if err != nil {
		log.Warn("profile fetch failed", logger.Err(err))
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, callbackMessage(err))
	}

	now := s.deps.Now().UTC()
	cred := providers.Credential{
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		ProviderUserID: providers.Or(acct.ID, tokens.UserID),
		Username:       acct.Label(),
		ConnectedAt:    now,
	}
	if tokens.ExpiresIn > 0 {
		exp := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
		cred.ExpiresAt = &exp
	}
	if err := s.deps.Store.PutCredential(ctx, st.UserID, p, cred); err != nil {
		log.Error("persist credential failed", logger.Err(err))
		metrics.IncOAuthFlow(p.String(), "failed")
		return notify.Failure(p, MsgCallbackFailed)
	}

	metrics.IncOAuthFlow(p.String(), "connected")
	log.Info("provider connected", logger.TokenLen("access_token", tokens.AccessToken))
	audit.Log(ctx, audit.EventProviderConnected, st.UserID, logger.Provider(p.String()), logger.String("account", cred.Username))
	return notify.Success(p, cred.Username)
}

// Disconnect is idempotent.
func (s *brokerService) Disconnect(ctx context.Context, user *identity.UserIdentity, provider string) error {
	p, err := providers.Parse(provider)
	if err != nil {
		return err
	}
	if err := s.deps.Store.DeleteCredential(ctx, user.ID, p); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	metrics.IncOAuthFlow(p.String(), "disconnected")
	audit.Log(ctx, audit.EventProviderDisconnected, user.ID, logger.Provider(p.String()))
	return nil
}

// Status reports all five providers. A store error for one provider is
// logged and reported as not connected.
func (s *brokerService) Status(ctx context.Context, user *identity.UserIdentity) (*dto.StatusResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Status"))

	out := &dto.StatusResponse{Status: make(map[string]dto.PlatformStatus, len(providers.All()))}
	for _, p := range providers.All() {
		sum, err := s.deps.Store.GetCredentialSummary(ctx, user.ID, p)
		if err != nil {
			if !errors.Is(err, providers.ErrNotConnected) {
				log.Warn("credential lookup failed", logger.Provider(p.String()), logger.Err(err))
			}
			out.Status[p.String()] = dto.PlatformStatus{Connected: false}
			continue
		}
		connectedAt := sum.ConnectedAt
		st := dto.PlatformStatus{Connected: true, Username: sum.Username}
		if !connectedAt.IsZero() {
			st.ConnectedAt = &connectedAt
		}
		out.Status[p.String()] = st
	}
	return out, nil
}

func callbackMessage(err error) string {
	var ue *providers.UpstreamError
	if errors.As(err, &ue) {
		if errors.Is(ue, providers.ErrUpstreamRejected) && ue.Message != "" {
			return ue.Message
		}
		if errors.Is(ue, providers.ErrUpstreamUnreachable) {
			return ue.Provider.DisplayName() + " is unreachable"
		}
	}
	return MsgCallbackFailed
}
