package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dbTracerName = "userhub/postgres"

// ObserveDB runs fn inside a client span named after op and records its
// latency. A row lookup that finds nothing is a "miss", not an error: login
// and user reads hit it on every unknown email or id. A nil *Prom still traces.
func (p *Prom) ObserveDB(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(dbTracerName).Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		status = "miss"
	default:
		status = "error"
		class := classifyDBErr(err)
		span.SetAttributes(attribute.String("db.error_class", class))
		span.SetStatus(codes.Error, class)
		if p != nil {
			p.DbErrorsTotal.WithLabelValues(op, class).Inc()
		}
	}

	if p != nil {
		p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	}
	return err
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			// duplicate email
			return "unique_violation"
		case "23502":
			return "not_null_violation"
		case "23514":
			// users.role outside ('admin','user')
			return "check_violation"
		case "22001":
			return "value_too_long"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
