package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-re/meridian/internal/periods"
	"github.com/meridian-re/meridian/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates posting, drafting, and voiding journal entries.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the journal engine.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and persists a new Posted journal entry. Validation runs in
// a fixed order so callers see a stable failure: accounts first, then the
// period gate, then balance, then line count. Lines are visible to balance
// queries the moment the transaction commits.
func (s *Service) Post(ctx context.Context, input PostingInput) (Entry, error) {
	if err := input.ValidateShape(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockEntity(ctx, input.EntityID); err != nil {
			return err
		}
		if err := s.validatePosting(ctx, tx, input); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input, StatusPosted, nil)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, 0, "journal.post", entry.ID, map[string]any{
		"number":    entry.Number,
		"entity_id": entry.EntityID,
	})
	return entry, nil
}

// validatePosting enforces the posting contract in order: (1) entity and
// accounts exist and belong together, (2) the period covering the date is
// open, (3) debits equal credits exactly, (4) at least two lines.
func (s *Service) validatePosting(ctx context.Context, tx TxRepository, input PostingInput) error {
	ok, err := tx.EntityExists(ctx, input.EntityID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownEntity
	}
	if err := s.checkAccounts(ctx, tx, input); err != nil {
		return err
	}
	period, err := tx.FindPeriodForUpdate(ctx, input.EntityID, input.Date)
	if err != nil {
		if errors.Is(err, periods.ErrPeriodNotFound) {
			return periods.ErrPeriodClosed
		}
		return err
	}
	if period.Status != periods.StatusOpen {
		return periods.ErrPeriodClosed
	}
	if !input.Balanced() {
		return ErrUnbalanced
	}
	if len(input.Lines) < 2 {
		return ErrEmptyEntry
	}
	return nil
}

func (s *Service) checkAccounts(ctx context.Context, tx TxRepository, input PostingInput) error {
	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.AccountID)
	}
	if len(ids) == 0 {
		return nil
	}
	owners, err := tx.AccountEntities(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		entityID, ok := owners[id]
		if !ok || entityID != input.EntityID {
			return ErrUnknownAccount
		}
	}
	return nil
}

// SaveDraft stores an entry in Draft status. Drafts check line shape and
// account ownership but defer the period, balance, and line-count rules to
// posting time.
func (s *Service) SaveDraft(ctx context.Context, input PostingInput) (Entry, error) {
	if err := input.ValidateShape(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockEntity(ctx, input.EntityID); err != nil {
			return err
		}
		ok, err := tx.EntityExists(ctx, input.EntityID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownEntity
		}
		if err := s.checkAccounts(ctx, tx, input); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input, StatusDraft, nil)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// PostDraft promotes a Draft entry through the full posting validation.
func (s *Service) PostDraft(ctx context.Context, id int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, _, err := tx.GetEntryWithLines(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockEntity(ctx, current.EntityID); err != nil {
			return err
		}
		// Re-read under the lock; a concurrent writer may have promoted or
		// voided the entry between the first read and the lock.
		current, lines, err := tx.GetEntryWithLines(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotPosted
		}
		input := PostingInput{EntityID: current.EntityID, Date: current.Date, Lines: toLineInputs(lines)}
		if err := s.validatePosting(ctx, tx, input); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, current.ID, StatusPosted); err != nil {
			return err
		}
		entry = current
		entry.Status = StatusPosted
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, 0, "journal.post_draft", entry.ID, map[string]any{"entity_id": entry.EntityID})
	return entry, nil
}

// Void reverses a Posted entry: it posts an equal-and-opposite entry dated
// the day of the void action and flips the original's status. The original
// lines are never mutated, and the pair nets to zero in every balance.
func (s *Service) Void(ctx context.Context, id int64, actorID int64) (Entry, error) {
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, _, err := tx.GetEntryWithLines(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockEntity(ctx, original.EntityID); err != nil {
			return err
		}
		// Re-read under the lock so a concurrent void of the same entry loses
		// cleanly instead of surfacing a serialization failure.
		original, lines, err := tx.GetEntryWithLines(ctx, id)
		if err != nil {
			return err
		}
		if original.Status == StatusVoid {
			return ErrAlreadyVoided
		}
		if original.Status != StatusPosted {
			return ErrNotPosted
		}
		voidDate := s.now().Truncate(24 * time.Hour)
		period, err := tx.FindPeriodForUpdate(ctx, original.EntityID, voidDate)
		if err != nil {
			if errors.Is(err, periods.ErrPeriodNotFound) {
				return periods.ErrPeriodClosed
			}
			return err
		}
		if period.Status != periods.StatusOpen {
			return periods.ErrPeriodClosed
		}
		posting := PostingInput{
			EntityID:  original.EntityID,
			Date:      voidDate,
			Memo:      fmt.Sprintf("Void of JE %d", original.Number),
			Reference: original.Reference,
			ClientRef: uuid.New(),
			Lines:     reverseLines(lines),
		}
		inserted, err := tx.InsertEntry(ctx, posting, StatusPosted, &original.ID)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, original.ID, StatusVoid); err != nil {
			return err
		}
		reversal = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actorID, "journal.void", id, map[string]any{
		"reversal_id":     reversal.ID,
		"reversal_number": reversal.Number,
	})
	return reversal, nil
}

// Get loads an entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	entry, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// List returns entries for an entity, newest first.
func (s *Service) List(ctx context.Context, entityID int64) ([]Entry, error) {
	return s.repo.List(ctx, entityID)
}

func reverseLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{AccountID: line.AccountID, Debit: line.Credit, Credit: line.Debit})
	}
	return out
}

func toLineInputs(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	return out
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
