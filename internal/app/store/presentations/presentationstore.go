// internal/app/store/presentations/presentationstore.go
package presentationstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/domain/models"
	"go.uber.org/zap"
)

// KeyPrefix is prepended to the group id to form the record key.
const KeyPrefix = "pres_session_"

// Key returns the ephemeral key holding the group's session.
func Key(groupID int64) string {
	return KeyPrefix + strconv.FormatInt(groupID, 10)
}

// Store keeps one PresentationSession per group in tab-scoped storage.
// Records are not validated on save.
type Store struct {
	kv  kv.Ephemeral
	log *zap.Logger
}

func New(e kv.Ephemeral, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: e, log: log}
}

// Load returns the group's session. ok is false when no record exists or the
// stored record does not parse.
func (s *Store) Load(ctx context.Context, groupID int64) (models.PresentationSession, bool, error) {
	raw, err := s.kv.Get(ctx, Key(groupID))
	if errors.Is(err, kv.ErrNotFound) {
		return models.PresentationSession{}, false, nil
	}
	if err != nil {
		return models.PresentationSession{}, false, fmt.Errorf("load session %d: %w", groupID, err)
	}
	var ps models.PresentationSession
	if err := json.Unmarshal(raw, &ps); err != nil {
		s.log.Warn("session record corrupt; treating as none",
			zap.Int64("group_id", groupID),
			zap.Error(err))
		return models.PresentationSession{}, false, nil
	}
	if ps.CompletedIDs == nil {
		ps.CompletedIDs = []int64{}
	}
	return ps, true, nil
}

// Save overwrites the group's session.
func (s *Store) Save(ctx context.Context, groupID int64, ps models.PresentationSession) error {
	if ps.CompletedIDs == nil {
		ps.CompletedIDs = []int64{}
	}
	b, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", groupID, err)
	}
	if err := s.kv.Set(ctx, Key(groupID), b); err != nil {
		return fmt.Errorf("save session %d: %w", groupID, err)
	}
	return nil
}

// Clear removes the group's session. Clearing a missing session succeeds.
func (s *Store) Clear(ctx context.Context, groupID int64) error {
	if err := s.kv.Delete(ctx, Key(groupID)); err != nil {
		return fmt.Errorf("clear session %d: %w", groupID, err)
	}
	return nil
}
