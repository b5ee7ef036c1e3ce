// Command request sends one request to the backend through the requester and prints the payload.
//
// Usage:
//
//	request --base-url https://backend.example.com --method POST --path /LS-KK-backend/user/login.action --data '{"username":"john"}'
//
// Each flag can be set by an environment variable with the REQUEST_ prefix or in the .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd, err := newCommand(args)
	if err != nil {
		return err
	}
	defer cmd.close()
	return cmd.execute(ctx, stdout)
}
