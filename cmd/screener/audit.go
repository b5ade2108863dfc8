package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/audit/async"
	"github.com/crimson-sun/screener/internal/audit/file"
	"github.com/crimson-sun/screener/internal/audit/multi"
	"github.com/crimson-sun/screener/internal/audit/sqlstore"
	"github.com/crimson-sun/screener/internal/audit/stdout"
	"github.com/crimson-sun/screener/internal/audit/webhook"
	"github.com/crimson-sun/screener/internal/config"
)

// openAudit builds the sinks named in a. With background set, writes are
// queued so a slow sink never holds up a request.
func openAudit(ctx context.Context, a config.AuditConfig, background bool) (audit.Sink, error) {
	if len(a.Sinks) == 0 {
		return audit.Discard, nil
	}
	v, err := audit.ParseVerbosity(a.Verbosity)
	if err != nil {
		return nil, err
	}

	var sinks []audit.Sink
	fail := func(err error) (audit.Sink, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}
	for _, name := range a.Sinks {
		switch name {
		case "stdout":
			sinks = append(sinks, stdout.New(v, false))
		case "file":
			var opts []file.Option
			if a.MaxSize > 0 {
				opts = append(opts, file.WithMaxSize(a.MaxSize))
			}
			s, err := file.New(a.File, v, opts...)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "webhook":
			sinks = append(sinks, webhook.New(a.WebhookURL, v, webhook.WithOnError(func(err error) {
				slog.Warn("audit webhook delivery failed", "error", err)
			})))
		case "sqlite":
			s, err := sqlstore.OpenSQLite(a.SQLitePath, v)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "postgres":
			s, err := sqlstore.OpenPostgres(ctx, a.PostgresDSN, v)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		default:
			return fail(fmt.Errorf("audit: unknown sink %q", name))
		}
	}

	slog.Info("audit enabled", "sinks", a.Sinks, "verbosity", v.String())
	var sink audit.Sink = multi.New(sinks...)
	if background {
		sink = async.New(sink, async.WithOnError(func(err error) {
			slog.Warn("audit write failed", "error", err)
		}))
	}
	return sink, nil
}

// openStore opens the queryable audit store: postgres when it is one of
// the configured sinks, otherwise the sqlite database.
func openStore(ctx context.Context, a config.AuditConfig, backend string) (*sqlstore.Store, error) {
	if backend == "" {
		backend = "sqlite"
		if slices.Contains(a.Sinks, "postgres") {
			backend = "postgres"
		}
	}
	switch backend {
	case "sqlite":
		return sqlstore.OpenSQLite(a.SQLitePath, audit.Standard)
	case "postgres":
		if a.PostgresDSN == "" {
			return nil, errors.New("audit: SCREENER_AUDIT_POSTGRES_DSN is not set")
		}
		return sqlstore.OpenPostgres(ctx, a.PostgresDSN, audit.Standard)
	default:
		return nil, fmt.Errorf("audit: unknown store %q (want sqlite or postgres)", backend)
	}
}
