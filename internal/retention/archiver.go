// Package retention moves aged quote records from the database to S3
// cold storage on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// QuoteArchiver is the archive-and-prune surface the worker drives. The
// prune step is expected to verify the uploaded archive before deleting
// anything.
type QuoteArchiver interface {
	ArchiveQuotes(ctx context.Context, before time.Time) (int64, error)
	PruneQuotes(ctx context.Context, before time.Time) (int64, error)
}

// Worker runs periodic archive passes over the quote store.
type Worker struct {
	archiver      QuoteArchiver
	retentionDays int
	logger        *slog.Logger
}

// NewWorker creates a retention Worker.
func NewWorker(archiver QuoteArchiver, retentionDays int, logger *slog.Logger) *Worker {
	return &Worker{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "retention")),
	}
}

// Run executes a single archive pass: upload quotes older than the
// retention cutoff, then prune the archived rows.
func (w *Worker) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(w.retentionDays) * 24 * time.Hour)
	w.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", w.retentionDays),
	)

	archived, err := w.archiver.ArchiveQuotes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention: archiving quotes before %v: %w", cutoff, err)
	}
	if archived == 0 {
		w.logger.InfoContext(ctx, "archive run complete, nothing to archive")
		return nil
	}

	pruned, err := w.archiver.PruneQuotes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention: pruning quotes before %v: %w", cutoff, err)
	}

	w.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("quotes_archived", archived),
		slog.Int64("quotes_pruned", pruned),
	)

	return nil
}

// RunCron runs the worker on a cron schedule until the context is
// cancelled. It supports cron expressions in the standard 5-field
// format: "minute hour day-of-month month day-of-week".
//
// Example: "0 3 1 * *" runs at 3:00 AM on the 1st of every month.
func (w *Worker) RunCron(ctx context.Context, cronExpr string) error {
	w.logger.InfoContext(ctx, "retention cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("retention: parsing cron expression %q: %w", cronExpr, err)
		}

		waitDuration := time.Until(next)
		w.logger.InfoContext(ctx, "waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", waitDuration),
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.InfoContext(ctx, "retention cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := w.Run(ctx); err != nil {
				w.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// cronField represents a parsed cron field that can match against a value.
type cronField struct {
	wildcard bool
	values   []int
}

// matches returns true if the given value matches this cron field.
func (f cronField) matches(val int) bool {
	if f.wildcard {
		return true
	}
	for _, v := range f.values {
		if v == val {
			return true
		}
	}
	return false
}

// parseCronField parses a single cron field (e.g. "0", "*", "1,15").
func parseCronField(field string) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	parts := strings.Split(field, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return cronField{}, fmt.Errorf("invalid cron field value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return cronField{values: values}, nil
}

// parsedCron holds five parsed cron fields.
type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

// matchesTime returns true if the given time matches all five cron fields.
func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

// parseCron parses a 5-field cron expression into a parsedCron struct.
func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minute, err := parseCronField(fields[0])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing minute field: %w", err)
	}
	hour, err := parseCronField(fields[1])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing hour field: %w", err)
	}
	dayOfMonth, err := parseCronField(fields[2])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-month field: %w", err)
	}
	month, err := parseCronField(fields[3])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing month field: %w", err)
	}
	dayOfWeek, err := parseCronField(fields[4])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-week field: %w", err)
	}

	return parsedCron{
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

// nextCronTime calculates the next time after 'after' that matches the
// given cron expression. It searches minute-by-minute up to one year
// ahead.
func nextCronTime(cronExpr string, after time.Time) (time.Time, error) {
	cron, err := parseCron(cronExpr)
	if err != nil {
		return time.Time{}, err
	}

	// Start from the next minute boundary.
	candidate := after.Truncate(time.Minute).Add(time.Minute)

	// Search up to one year ahead to avoid infinite loops.
	limit := after.Add(366 * 24 * time.Hour)

	for candidate.Before(limit) {
		if cron.matchesTime(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}

	return time.Time{}, fmt.Errorf("no matching cron time found within one year for %q", cronExpr)
}
