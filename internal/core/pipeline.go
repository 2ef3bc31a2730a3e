package core

// pipeline.go orchestrates one import run: duplicate-source gate,
// per-row validation and fingerprinting, transactional reconciliation
// against the ledger, and event publication. The run itself is
// synchronous on the calling goroutine; only event fan-out is
// asynchronous.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdbook/internal/bus"
	"herdbook/internal/logging"
)

// MaxRowErrorDetails caps how many row errors an Outcome carries.
// Errored still counts all of them.
const MaxRowErrorDetails = 10

// ErrUnknownCategory is returned when the requested category key has no
// registered definition.
var ErrUnknownCategory = errors.New("unknown category")

// Ledger is the persistence boundary of the pipeline. *store.Store
// implements it; tests use an in-memory fake.
type Ledger interface {
	// SourceApplied reports whether an import with this whole-file
	// digest was already applied to the category.
	SourceApplied(ctx context.Context, category CategoryKey, digest string) (bool, error)

	// Reconcile applies the add/remove diff between the live records of
	// def and records in a single transaction, soft-deleting removed
	// rows, and records the import event. Returns the added and removed
	// fingerprints.
	Reconcile(ctx context.Context, def CategoryDefinition, records []ValidatedRecord, meta ImportMeta) (added, removed []string, err error)
}

// Options configures a Service.
type Options struct {
	MaxConcurrent        int
	MaxWait              time.Duration
	Timeout              time.Duration // per-run bound, 0 means none
	CheckDuplicateSource bool          // gate default, overridable per run
}

// Service runs the import pipeline.
type Service struct {
	ledger  Ledger
	bus     *bus.Bus
	limiter *ImportLimiter
	opts    Options
}

// NewService creates a pipeline service publishing to b.
func NewService(ledger Ledger, b *bus.Bus, opts Options) *Service {
	return &Service{
		ledger:  ledger,
		bus:     b,
		limiter: NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:    opts,
	}
}

// Limiter exposes the import limiter for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ProcessSource runs the full pipeline for one uploaded source.
//
// checkDuplicate overrides the configured gate default when non-nil.
// Row validation failures and reconciliation failures are folded into
// the returned Outcome (and published); an error is returned only for
// problems before the pipeline starts: unknown category, limiter
// rejection, or cancelled context.
func (s *Service) ProcessSource(ctx context.Context, key CategoryKey, src *SourceData, checkDuplicate *bool) (Outcome, error) {
	def, ok := Lookup(key)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownCategory, key)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return Outcome{}, err
	}
	defer s.limiter.Release()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	out := Outcome{
		RunID:        uuid.NewString(),
		Category:     key,
		SourceName:   src.Name,
		SourceDigest: src.Digest(),
	}
	log := logging.WithFields(ctx,
		"run_id", out.RunID,
		"category", string(key),
		"source", src.Name,
	)

	check := s.opts.CheckDuplicateSource
	if checkDuplicate != nil {
		check = *checkDuplicate
	}

	if check {
		applied, err := s.ledger.SourceApplied(ctx, key, out.SourceDigest)
		if err != nil {
			out.Message = fmt.Sprintf("duplicate check: %v", err)
			out.Duration = time.Since(start)
			log.Error("import failed", "error", err)
			s.publish(bus.ImportFailed, out)
			return out, nil
		}
		if applied {
			out.Message = "duplicate source"
			out.Duration = time.Since(start)
			log.Info("import skipped, source already applied", "digest", out.SourceDigest)
			s.publish(bus.ImportSkipped, out)
			return out, nil
		}
	}

	records := make([]ValidatedRecord, 0, len(src.Rows))
	for i, row := range src.Rows {
		line := 0
		if i < len(src.Lines) {
			line = src.Lines[i]
		}
		rec, rowErr := Validate(def, row, line)
		if rowErr != nil {
			out.Errored++
			if len(out.RowErrors) < MaxRowErrorDetails {
				out.RowErrors = append(out.RowErrors, *rowErr)
			}
			continue
		}
		out.Validated++
		records = append(records, rec)
	}
	records = DedupeRecords(records)

	if out.Validated == 0 && len(src.Rows) > 0 {
		// Every row failed. The reconcile below will empty the category;
		// call that out so the run gets reviewed instead of trusted.
		log.Warn("no row passed validation, category will be emptied",
			"rows", len(src.Rows))
	}

	added, removed, err := s.ledger.Reconcile(ctx, def, records, ImportMeta{
		RunID:        out.RunID,
		SourceName:   src.Name,
		SourceDigest: out.SourceDigest,
		Validated:    out.Validated,
		Errored:      out.Errored,
	})
	if err != nil {
		out.Message = fmt.Sprintf("apply diff: %v", err)
		out.Duration = time.Since(start)
		log.Error("import failed", "error", err)
		s.publish(bus.ImportFailed, out)
		return out, nil
	}

	out.Success = true
	out.Added = added
	out.Removed = removed
	out.Duration = time.Since(start)
	out.Message = out.Summary()

	log.Info("import completed",
		"validated", out.Validated,
		"errored", out.Errored,
		"added", len(added),
		"removed", len(removed),
		"duration", out.Duration)
	s.publish(bus.ImportCompleted, out)
	return out, nil
}

func (s *Service) publish(kind bus.Kind, out Outcome) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Kind: kind, Payload: out})
}
