// Command issue-token печатает подписанный JWT для локальных запросов к API.
//
//	ORDERS_JWT_SECRET=dev issue-token -user 7 -role 1
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vladislavdragonenkov/orderlife/internal/auth"
	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

const (
	envJWTSecret = "ORDERS_JWT_SECRET"
	envJWTIssuer = "ORDERS_JWT_ISSUER"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		userID int64
		role   int
		ttl    = auth.DefaultTTL
		secret string
		issuer string
	)
	fs.Int64Var(&userID, "user", 0, "user id placed into the user_id claim")
	fs.IntVar(&role, "role", int(domain.RoleCustomer), "role id (1 = admin)")
	fs.DurationVar(&ttl, "ttl", ttl, "token lifetime")
	fs.StringVar(&secret, "secret", "", "HMAC secret (fallback: "+envJWTSecret+")")
	fs.StringVar(&issuer, "issuer", "", "issuer claim (fallback: "+envJWTIssuer+")")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if userID <= 0 {
		return fail(stderr, "-user must be a positive id")
	}
	if strings.TrimSpace(secret) == "" {
		secret = getenv(envJWTSecret)
	}
	if issuer == "" {
		issuer = getenv(envJWTIssuer)
	}

	verifier, err := auth.NewVerifier(secret, issuer)
	if err != nil {
		return fail(stderr, "init signer: %v", err)
	}
	token, err := verifier.Issue(domain.Principal{ID: userID, Role: domain.Role(role)}, ttl)
	if err != nil {
		return fail(stderr, "issue token: %v", err)
	}

	_, _ = fmt.Fprintln(stdout, token)
	return 0
}

func fail(w io.Writer, format string, args ...any) int {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
	return 1
}
