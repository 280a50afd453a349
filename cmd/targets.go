package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mindx/internal/formatter"
	"github.com/desertthunder/mindx/internal/repositories"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TargetsList prints the most recent catalog rows.
func (r *Runner) TargetsList(ctx context.Context, cmd *cli.Command) error {
	backend, closeFn, err := r.openBackend()
	if err != nil {
		return err
	}
	defer closeFn()

	targets, err := backend.Catalog.ListTargets(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	switch format := strings.ToLower(cmd.String("format")); format {
	case "table", "":
		return r.writeRendered(ui.TargetsTable(targets))
	case "text":
		return r.writeRendered(string(formatter.TargetsToText(targets)))
	case "csv":
		data, err := formatter.TargetsToCSV(targets)
		if err != nil {
			return err
		}
		return r.writeRendered(string(data))
	case "json":
		data, err := formatter.TargetsToJSON(targets)
		if err != nil {
			return err
		}
		return r.writeRendered(string(data) + "\n")
	default:
		return fmt.Errorf("%w: unsupported format %q (must be table, text, csv or json)", shared.ErrInvalidArgument, format)
	}
}

// Token mints a local HS256 access token. Without --sub a new account is created for --email.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	if r.config.Backend != shared.BackendLocal {
		return fmt.Errorf("%w: tokens can only be minted for the local backend", shared.ErrInvalidArgument)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	subject := cmd.String("sub")
	email := cmd.String("email")
	ttl := cmd.Duration("ttl")
	if ttl <= 0 {
		ttl = time.Hour
	}

	if subject == "" {
		if email == "" {
			return fmt.Errorf("%w: --sub or --email", shared.ErrMissingArgument)
		}

		db, err := shared.OpenAndMigrate(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		account, err := repositories.NewAccountRepository(db).Create(ctx, email)
		if err != nil {
			return err
		}
		subject = account.ID
		r.logger.Info("account created", "user_id", subject, "email", email)
	}

	token, err := services.IssueToken(r.config.Platform.JWTSecret, subject, email, ttl)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"user_id":      subject,
			"access_token": token,
			"expires_in":   int(ttl.Seconds()),
		}, true)
	}
	return r.writePlain("%s\n", token)
}
