package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/observability"
)

// ErrStorageUnavailable aborts an import; rows inserted before it stay.
var ErrStorageUnavailable = errors.New("user store unavailable during import")

type Store interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
}

// Report counts data rows; Total == Inserted + Skipped.
type Report struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type State int

const (
	StateOpened State = iota
	StateStreaming
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Importer struct {
	store  Store
	hasher Hasher
	log    *slog.Logger
	prom   *observability.Prom
}

// New builds an Importer; log and prom may be nil.
func New(store Store, hasher Hasher, log *slog.Logger, prom *observability.Prom) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: store, hasher: hasher, log: log, prom: prom}
}

// ImportFile imports the CSV at path and removes the file afterwards,
// whether or not the import succeeded.
func (im *Importer) ImportFile(ctx context.Context, path string) (rep Report, err error) {
	start := time.Now()
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		im.remove(ctx, path)
		return rep, fmt.Errorf("open upload: %w", err)
	}

	im.enter(ctx, StateOpened, name)

	defer func() {
		im.enter(ctx, StateFinalizing, name)

		if closeErr := f.Close(); closeErr != nil {
			im.log.WarnContext(ctx, "import_close_failed", "file", name, "err", closeErr)
		}
		im.remove(ctx, path)

		im.enter(ctx, StateClosed, name)
		im.prom.ObserveImport(time.Since(start))

		attrs := []any{"file", name, "total", rep.Total, "inserted", rep.Inserted, "skipped", rep.Skipped}
		if err != nil {
			im.log.ErrorContext(ctx, "import_aborted", append(attrs, "err", err)...)
			return
		}
		im.log.InfoContext(ctx, "import_finished", attrs...)
	}()

	im.enter(ctx, StateStreaming, name)

	return im.Import(ctx, f)
}

// Import folds over the rows of r, inserting each valid row on its own.
// Invalid rows are logged and skipped; only a store failure that is not
// about the row itself stops the fold.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Report, error) {
	var rep Report

	for row, err := range Rows(r) {
		if err != nil {
			var parseErr *csv.ParseError
			switch {
			case errors.Is(err, ErrBadHeader):
				return rep, err
			case errors.As(err, &parseErr):
				rep.Total++
				im.skip(ctx, &rep, "malformed_line", err)
				continue
			default:
				return rep, fmt.Errorf("read upload: %w", err)
			}
		}

		rep.Total++

		insertErr := im.insert(ctx, row)
		switch {
		case insertErr == nil:
			rep.Inserted++
			im.prom.ObserveImportRow("inserted")
		case isRowError(insertErr):
			im.skip(ctx, &rep, "rejected", insertErr)
		default:
			return rep, fmt.Errorf("%w: row %d: %w", ErrStorageUnavailable, rep.Total, insertErr)
		}
	}

	return rep, nil
}

type rowError struct {
	err error
}

func (e *rowError) Error() string { return e.err.Error() }
func (e *rowError) Unwrap() error { return e.err }

func (im *Importer) insert(ctx context.Context, row Row) error {
	in := user.CreateInput{
		Name:     row["name"],
		Email:    row["email"],
		Password: row["password"],
		Role:     user.Role(row["role"]),
	}.Normalize()

	if err := in.Validate(); err != nil {
		return &rowError{err: err}
	}

	hash, err := im.hasher.Hash(in.Password)
	if err != nil {
		return &rowError{err: fmt.Errorf("hash password: %w", err)}
	}

	_, err = im.store.Create(ctx, user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	})
	return err
}

func isRowError(err error) bool {
	var re *rowError
	return errors.As(err, &re) || errors.Is(err, user.ErrEmailTaken) || errors.Is(err, user.ErrConstraint)
}

func (im *Importer) skip(ctx context.Context, rep *Report, reason string, err error) {
	rep.Skipped++
	im.prom.ObserveImportRow("skipped")
	im.log.WarnContext(ctx, "import_row_skipped", "row", rep.Total, "reason", reason, "err", err.Error())
}

func (im *Importer) enter(ctx context.Context, s State, file string) {
	im.log.DebugContext(ctx, "import_state", "state", s.String(), "file", file)
}

func (im *Importer) remove(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		im.log.WarnContext(ctx, "import_cleanup_failed", "file", filepath.Base(path), "err", err)
	}
}
