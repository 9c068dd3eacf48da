package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// GameRecord is the outcome of a finished round.
type GameRecord struct {
	GameRecordID int64     `db:"game_record_id"`
	SessionID    string    `db:"session_id"`
	PlayerID     *int64    `db:"player_id"`
	Rows         int       `db:"rows"`
	Cols         int       `db:"cols"`
	MineCount    int       `db:"mine_count"`
	Won          bool      `db:"won"`
	StartedAt    time.Time `db:"started_at"`
	EndedAt      time.Time `db:"ended_at"`
}

type CreateGameRecordParams struct {
	SessionID string
	PlayerID  *int64
	Rows      int
	Cols      int
	MineCount int
	Won       bool
	StartedAt time.Time
	EndedAt   time.Time
}

func (p CreateGameRecordParams) args() pgx.NamedArgs {
	args := pgx.NamedArgs{
		"session_id": p.SessionID,
		"player_id":  nil,
		"rows":       p.Rows,
		"cols":       p.Cols,
		"mine_count": p.MineCount,
		"won":        p.Won,
		"started_at": p.StartedAt,
		"ended_at":   p.EndedAt,
	}
	if p.PlayerID != nil {
		args["player_id"] = *p.PlayerID
	}
	return args
}

// CreateGameRecord stores a finished round. A round is identified by its
// session and start time, so repeated calls return the existing row.
func (q *Queries) CreateGameRecord(
	ctx context.Context, params CreateGameRecordParams,
) (*GameRecord, error) {
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO game_record (
			session_id, player_id, rows, cols, mine_count, won, started_at, ended_at
		)
		VALUES (
			@session_id, @player_id, @rows, @cols, @mine_count, @won, @started_at, @ended_at
		)
		ON CONFLICT (session_id, started_at) DO UPDATE SET won = game_record.won
		RETURNING
			game_record_id, session_id::text, player_id, rows, cols,
			mine_count, won, started_at, ended_at;`,
		params.args(),
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[GameRecord])
}
