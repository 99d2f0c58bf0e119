package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// Store implements player.Store on a single players table. Each record is
// one JSONB document, the same shape the file backend writes. Per-key
// serialization comes from SELECT ... FOR UPDATE inside Mutate, so multiple
// bot instances can share the table safely.
type Store struct {
	conn *Connection
}

// NewStore creates a postgres-backed progress store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS players (
	user_id    BIGINT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Load ensures the schema exists. Unlike the file backend there is nothing
// to read into memory: every operation goes to the table.
func (s *Store) Load(ctx context.Context) error {
	if _, err := s.conn.Pool().Exec(ctx, schemaSQL); err != nil {
		return shared.WrapError("store", "Load", shared.ErrPersistence, "ensure players schema", err)
	}
	return nil
}

// Persist is a no-op: every Mutate commits its own transaction.
func (s *Store) Persist(_ context.Context) error {
	return nil
}

// GetOrCreate returns the player record, inserting a defaulted one on first
// reference. A non-empty name refreshes the display name of an existing
// record.
func (s *Store) GetOrCreate(ctx context.Context, userID int64, name string) (*player.State, error) {
	var state *player.State
	err := s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		state, err = getForUpdate(ctx, tx, userID)
		if err == nil {
			if name == "" || state.Name == name {
				return nil
			}
			state.Name = name
			return update(ctx, tx, state)
		}
		if !IsNoRows(err) {
			return wrapQuery("GetOrCreate", err)
		}

		state = player.NewState(userID, name)
		return insert(ctx, tx, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// View runs fn on the current record without writing back.
func (s *Store) View(ctx context.Context, userID int64, fn player.ViewFunc) error {
	row := s.conn.Pool().QueryRow(ctx, `SELECT state FROM players WHERE user_id = $1`, userID)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if IsNoRows(err) {
			return shared.ErrPlayerNotFound
		}
		return wrapQuery("View", err)
	}

	state, err := decode(data, userID)
	if err != nil {
		return err
	}
	return fn(state)
}

// Mutate applies fn to the record under a row lock. An fn error rolls the
// transaction back with no mutation.
func (s *Store) Mutate(ctx context.Context, userID int64, fn player.MutateFunc) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		state, err := getForUpdate(ctx, tx, userID)
		if err != nil {
			if !IsNoRows(err) {
				return wrapQuery("Mutate", err)
			}
			state = player.NewState(userID, "")
			if err := insert(ctx, tx, state); err != nil {
				return err
			}
		}

		if err := fn(state); err != nil {
			return err
		}
		return update(ctx, tx, state)
	})
}

// All returns every record ordered by user id.
func (s *Store) All(ctx context.Context) ([]*player.State, error) {
	rows, err := s.conn.Pool().Query(ctx, `SELECT user_id, state FROM players ORDER BY user_id`)
	if err != nil {
		return nil, wrapQuery("All", err)
	}
	defer rows.Close()

	var states []*player.State
	for rows.Next() {
		var userID int64
		var data []byte
		if err := rows.Scan(&userID, &data); err != nil {
			return nil, wrapQuery("All", err)
		}
		state, err := decode(data, userID)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery("All", err)
	}
	return states, nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*player.State, error) {
	row := tx.QueryRow(ctx, `SELECT state FROM players WHERE user_id = $1 FOR UPDATE`, userID)

	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	return decode(data, userID)
}

func insert(ctx context.Context, tx pgx.Tx, state *player.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return shared.WrapError("store", "Create", shared.ErrPersistence, "marshal state", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO players (user_id, state) VALUES ($1, $2)`,
		state.UserID, data)
	if err != nil {
		return shared.WrapError("store", "Create", shared.ErrPersistence, "insert state", err)
	}
	return nil
}

func update(ctx context.Context, tx pgx.Tx, state *player.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return shared.WrapError("store", "Update", shared.ErrPersistence, "marshal state", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE players SET state = $2, updated_at = NOW() WHERE user_id = $1`,
		state.UserID, data)
	if err != nil {
		return shared.WrapError("store", "Update", shared.ErrPersistence, "update state", err)
	}
	return nil
}

func decode(data []byte, userID int64) (*player.State, error) {
	var state player.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, shared.WrapError("store", "Decode", shared.ErrPersistence,
			fmt.Sprintf("unmarshal state for user %d", userID), err)
	}
	state.Migrate(userID)
	return &state, nil
}

func wrapQuery(op string, err error) error {
	return shared.WrapError("store", op, shared.ErrPersistence, "query failed", err)
}
