package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectModeCommand(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://admin.example.com/admin/login":                                       "password_sign_in",
		"https://admin.example.com/admin/login?apiKey=k&oobCode=c&mode=signIn":        "set_new_password",
		"https://admin.example.com/admin/login?apiKey=k&oobCode=c&mode=resetPassword": "password_sign_in",
	}
	for url, want := range cases {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"detect-mode", url})
		require.NoError(t, cmd.Execute())
		require.Equal(t, want+"\n", out.String(), url)
	}
}

func TestDetectModeRequiresURL(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"detect-mode"})
	require.Error(t, cmd.Execute())
}

func TestParseDevAccounts(t *testing.T) {
	t.Parallel()

	accounts, err := parseDevAccounts([]string{"staff@example.com:pw:with:colons"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"staff@example.com": "pw:with:colons"}, accounts)

	_, err = parseDevAccounts([]string{"missing-password"})
	require.Error(t, err)
}
