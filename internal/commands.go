package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/notestore/internal/api"
	"github.com/starford/notestore/internal/mcpserver"
	"github.com/starford/notestore/internal/storage"
)

// withService activates the configured account and hands its read-only
// service to fn. Logs go to stderr so stdout stays machine readable.
func withService(ctx context.Context, opts []Option, fn func(*application, *api.Service) error) error {
	app, err := setup(os.Stderr, opts)
	if err != nil {
		return err
	}

	mgr, sess, err := app.activate(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			app.logger.Error("close account", slog.String("error", err.Error()))
		}
	}()

	return fn(app, api.NewService(sess.DB))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Stats writes the entity counts of the configured account to w.
func Stats(ctx context.Context, w io.Writer, opts ...Option) error {
	return withService(ctx, opts, func(_ *application, svc *api.Service) error {
		counts, err := svc.Counts(ctx)
		if err != nil {
			return fmt.Errorf("counts: %w", err)
		}
		return printJSON(w, counts)
	})
}

// Search runs query against the configured account and writes the
// matching notes to w.
func Search(ctx context.Context, w io.Writer, query string, limit int, opts ...Option) error {
	return withService(ctx, opts, func(_ *application, svc *api.Service) error {
		notes, err := svc.Search(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return printJSON(w, notes)
	})
}

// Accounts writes the accounts found under the storage root to w.
func Accounts(_ context.Context, w io.Writer, opts ...Option) error {
	app, err := setup(os.Stderr, opts)
	if err != nil {
		return err
	}
	provider, err := storage.NewFS(app.config.Storage.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	accounts, err := provider.ListAccounts()
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	return printJSON(w, accounts)
}

// ServeMCP serves the read-only MCP tools over stdio until stdin closes.
func ServeMCP(ctx context.Context, version string, opts ...Option) error {
	return withService(ctx, opts, func(app *application, svc *api.Service) error {
		app.logger.Info("MCP server starting on stdio")
		return mcpserver.New(svc, version).ServeStdio()
	})
}
