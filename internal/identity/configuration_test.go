package identity_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/b2c-auth-demo/internal/identity"
	"github.com/openkcm/b2c-auth-demo/internal/serviceerr"
)

const (
	testClientID  = "11111111-2222-3333-4444-555555555555"
	testAuthority = "https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_signinsignup"
	testAPIScope  = "https://contoso.onmicrosoft.com/demo/auth"
)

func TestNewConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		clientID   string
		authority  string
		knownHosts []string
		redirect   string
		assertErr  assert.ErrorAssertionFunc
		wantErrIs  error
	}{
		{
			name:       "Success",
			clientID:   testClientID,
			authority:  testAuthority,
			knownHosts: []string{"contoso.b2clogin.com"},
			redirect:   "http://localhost",
			assertErr:  assert.NoError,
		},
		{
			name:       "Known host is case insensitive",
			clientID:   testClientID,
			authority:  "https://Contoso.B2CLogin.com/contoso.onmicrosoft.com/B2C_1_signinsignup/",
			knownHosts: []string{"contoso.b2clogin.com"},
			redirect:   "http://localhost",
			assertErr:  assert.NoError,
		},
		{
			name:       "Error - empty client id",
			authority:  testAuthority,
			knownHosts: []string{"contoso.b2clogin.com"},
			redirect:   "http://localhost",
			assertErr:  assert.Error,
		},
		{
			name:       "Error - unknown authority host",
			clientID:   testClientID,
			authority:  testAuthority,
			knownHosts: []string{"login.microsoftonline.com"},
			redirect:   "http://localhost",
			assertErr:  assert.Error,
			wantErrIs:  serviceerr.ErrInvalidAuthority,
		},
		{
			name:       "Error - http authority",
			clientID:   testClientID,
			authority:  "http://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_signinsignup",
			knownHosts: []string{"contoso.b2clogin.com"},
			redirect:   "http://localhost",
			assertErr:  assert.Error,
		},
		{
			name:       "Error - invalid redirect uri",
			clientID:   testClientID,
			authority:  testAuthority,
			knownHosts: []string{"contoso.b2clogin.com"},
			redirect:   "not a uri",
			assertErr:  assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := identity.NewConfiguration(tt.clientID, tt.authority, tt.knownHosts, tt.redirect, "", []string{testAPIScope})
			if !tt.assertErr(t, err, fmt.Sprintf("NewConfiguration() error = %v", err)) {
				return
			}
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
		})
	}
}

func TestConfiguration_LoginScopes(t *testing.T) {
	c, err := identity.NewConfiguration(testClientID, testAuthority, []string{"contoso.b2clogin.com"}, "http://localhost", "", []string{testAPIScope})
	require.NoError(t, err)

	assert.Equal(t, []string{"openid", "profile", "email", testAPIScope}, c.LoginScopes())

	// the package level scopes must not be aliased by the returned slice
	scopes := c.LoginScopes()
	scopes[0] = "changed"
	assert.Equal(t, "openid", identity.OIDCScopes[0])
}

func TestConfiguration_LogoutURL(t *testing.T) {
	c, err := identity.NewConfiguration(testClientID, testAuthority+"/", []string{"contoso.b2clogin.com"}, "http://localhost:5173", "", nil)
	require.NoError(t, err)

	got, err := c.LogoutURL()
	require.NoError(t, err)
	assert.Equal(t, testAuthority+"/oauth2/v2.0/logout?post_logout_redirect_uri=http%3A%2F%2Flocalhost%3A5173", got)
}

func TestAccount_DisplayName(t *testing.T) {
	assert.Equal(t, "Alice A.", identity.Account{Name: "Alice A.", GivenName: "Alice"}.DisplayName())
	assert.Equal(t, "Unknown user", identity.Account{GivenName: "Alice"}.DisplayName())
}
