package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LoadState returns the persisted sync bookkeeping. A freshly created
// database yields the zero value.
func (s *Store) LoadState(ctx context.Context) (EngineState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_sync, last_successful_sync, online FROM engine_state WHERE id = 1`)

	var (
		lastSyncRaw       sql.NullString
		lastSuccessfulRaw sql.NullString
		online            int
	)
	if err := row.Scan(&lastSyncRaw, &lastSuccessfulRaw, &online); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EngineState{}, nil
		}
		return EngineState{}, fmt.Errorf("load engine state: %w", err)
	}

	state := EngineState{Online: online != 0}
	if lastSyncRaw.Valid {
		if t, err := parseTimeString(lastSyncRaw.String); err == nil {
			state.LastSync = &t
		}
	}
	if lastSuccessfulRaw.Valid {
		if t, err := parseTimeString(lastSuccessfulRaw.String); err == nil {
			state.LastSuccessfulSync = &t
		}
	}
	return state, nil
}

// SaveState upserts the single sync bookkeeping row.
func (s *Store) SaveState(ctx context.Context, state EngineState) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO engine_state (id, last_sync, last_successful_sync, online)
         VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             last_sync = excluded.last_sync,
             last_successful_sync = excluded.last_successful_sync,
             online = excluded.online`,
		nullableTime(state.LastSync),
		nullableTime(state.LastSuccessfulSync),
		boolToInt(state.Online),
	); err != nil {
		return fmt.Errorf("save engine state: %w", err)
	}
	return nil
}
