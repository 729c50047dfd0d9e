// Command admintoken issues a signed operator token for the admin routes, using the same
// JWT_SECRET as the server.
//
//	go run ./cmd/admintoken -subject ops@example.com -ttl 1h
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/middleware"
	"github.com/openwork-hackathon/team-clawctor/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "admintoken:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admintoken", flag.ContinueOnError)
	subject := fs.String("subject", "", "operator identity recorded in the sub claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}
	if *ttl <= 0 {
		return errors.New("-ttl must be positive")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	token, err := utils.GenerateToken(os.Getenv("JWT_SECRET"), *subject, middleware.AdminRole, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
