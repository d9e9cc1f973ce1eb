package repository

import "github.com/dropDatabas3/socialpulse/internal/providers"

// Key layout. Everything a user owns lives under "user:{id}:".
func userPrefix(userID string) string { return "user:" + userID + ":" }

func profileKey(userID string) string { return userPrefix(userID) + "profile" }

func connectedAccountsKey(userID string) string { return userPrefix(userID) + "connectedAccounts" }

func credentialKey(userID string, p providers.Provider) string {
	return userPrefix(userID) + "oauth:" + string(p)
}

func stateKey(token string) string { return "oauth:state:" + token }
