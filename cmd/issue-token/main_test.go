package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderlife/internal/auth"
	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

func TestRun_IssuesVerifiableToken(t *testing.T) {
	env := func(key string) string {
		if key == envJWTSecret {
			return "dev-secret"
		}
		return ""
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"-user", "7", "-role", "1", "-ttl", "1m"}, env, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	verifier, err := auth.NewVerifier("dev-secret", "")
	require.NoError(t, err)
	principal, err := verifier.Verify(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	require.Equal(t, domain.Principal{ID: 7, Role: domain.RoleAdmin}, principal)
}

func TestRun_Rejects(t *testing.T) {
	noEnv := func(string) string { return "" }

	cases := map[string]struct {
		args []string
		code int
	}{
		"bad flag":     {args: []string{"-user", "x"}, code: 2},
		"missing user": {args: []string{"-secret", "s"}, code: 1},
		"no secret":    {args: []string{"-user", "7"}, code: 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			require.Equal(t, tc.code, run(tc.args, noEnv, &stdout, &stderr))
			require.Empty(t, stdout.String())
		})
	}
}
