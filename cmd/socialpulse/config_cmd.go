package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialpulse/internal/config"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/util"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Operaciones sobre la configuración",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Carga y valida la config; muestra qué proveedores están configurados",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config inválida: %w", err)
			}
			printConfigSummary(cmd, cfg)
			return nil
		},
	})
	return cfgCmd
}

func printConfigSummary(cmd *cobra.Command, c *config.Config) {
	secretbox := "***masked***"
	if c.Security.SecretboxMasterKey == "" {
		secretbox = "NOT_SET"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, `CONFIG:
  app.env=%s
  server.addr=%s base=%s cors=%v notify_origin=%s
  kv.driver=%s prefix=%s
  identity.mode=%s url=%s
  secretbox=%s
  oauth.state_ttl=%s
  analytics(provider_timeout=%s, breaker=%d/%d delay=%s)
  rate(enabled=%t, window=%s, max=%d)
PROVIDERS:
`,
		c.App.Env,
		c.Server.Addr, c.Server.PublicBaseURL, c.Server.CORSAllowedOrigins, c.Server.NotifyTargetOrigin,
		c.KV.Driver, c.KV.Prefix,
		c.Identity.Mode, c.Identity.URL,
		secretbox,
		c.OAuth.StateTTL,
		c.Analytics.ProviderTimeout, c.Analytics.Breaker.FailureThreshold, c.Analytics.Breaker.FailureWindow, c.Analytics.Breaker.Delay,
		c.Rate.Enabled, c.Rate.Window, c.Rate.MaxRequests,
	)
	for _, p := range providers.All() {
		pc := c.ProviderConfig(p)
		state := "not configured"
		if pc.Configured() {
			state = "configured"
		}
		fmt.Fprintf(out, "  %-10s %-15s client_id=%s redirect=%s\n", p, state, util.MaskSecret(pc.ClientID), pc.RedirectURL)
	}
}
