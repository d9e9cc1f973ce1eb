package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/socialpulse/internal/http/dto/account"
	"github.com/dropDatabas3/socialpulse/internal/http/dto/oauth"
)

func TestDisconnectRequest_Validate(t *testing.T) {
	assert.Error(t, oauth.DisconnectRequest{}.Validate())
	assert.Error(t, oauth.DisconnectRequest{Platform: "myspace"}.Validate())
	assert.NoError(t, oauth.DisconnectRequest{Platform: "LinkedIn"}.Validate())
}

func TestConnectAccountRequest_Validate(t *testing.T) {
	assert.Error(t, account.ConnectAccountRequest{}.Validate(), "missing array")

	empty := []string{}
	assert.NoError(t, account.ConnectAccountRequest{ConnectedAccounts: &empty}.Validate())

	ok := []string{"instagram", "tiktok"}
	assert.NoError(t, account.ConnectAccountRequest{ConnectedAccounts: &ok}.Validate())

	bad := []string{"instagram", "friendster"}
	assert.Error(t, account.ConnectAccountRequest{ConnectedAccounts: &bad}.Validate())
}

func TestSignupAndPasswordRules(t *testing.T) {
	assert.NoError(t, account.SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1"}.Validate())
	assert.Error(t, account.SignupRequest{Name: "Ana", Email: "not-an-email", Password: "secret1"}.Validate())
	assert.Error(t, account.SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "123"}.Validate())

	assert.Error(t, account.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "12345"}.Validate())
	assert.NoError(t, account.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "123456"}.Validate())
}
