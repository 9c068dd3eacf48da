package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vancomm/minesweeper/internal/mines"
)

type Highscore struct {
	GameRecordID int64   `json:"game_record_id" db:"game_record_id"`
	Username     *string `json:"username" db:"username"`
	Rows         int     `json:"rows" db:"rows"`
	Cols         int     `json:"cols" db:"cols"`
	MineCount    int     `json:"mine_count" db:"mine_count"`
	PlaytimeMs   float64 `json:"playtime_ms" db:"playtime_ms"`
}

const DefaultHighscoreLimit = 100

type HighscoreFilter struct {
	Username   *string
	Difficulty *mines.Difficulty
	// Limit caps the number of rows; zero means [DefaultHighscoreLimit].
	Limit int
}

func (f HighscoreFilter) WhereClause() (string, pgx.NamedArgs) {
	clauses := make([]string, 0)
	args := pgx.NamedArgs{}
	if f.Username != nil {
		clauses = append(clauses, "username = @username")
		args["username"] = *f.Username
	}
	if f.Difficulty != nil {
		clauses = append(
			clauses,
			"rows = @rows",
			"cols = @cols",
			"mine_count = @mine_count",
		)
		args["rows"] = f.Difficulty.Rows
		args["cols"] = f.Difficulty.Cols
		args["mine_count"] = f.Difficulty.MineCount
	}
	return strings.Join(clauses, " AND "), args
}

func (f HighscoreFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultHighscoreLimit {
		return DefaultHighscoreLimit
	}
	return f.Limit
}

// Query builds the highscore statement: won rounds only, fastest first.
func (f HighscoreFilter) Query() (string, pgx.NamedArgs) {
	query := `
	SELECT
		game_record_id,
		username,
		rows,
		cols,
		mine_count,
		(
			extract('epoch' from ended_at) -
			extract('epoch' from started_at)
		) * 1000 playtime_ms
	FROM game_record
		LEFT OUTER JOIN player using (player_id)
	WHERE
		won = true`

	whereClause, args := f.WhereClause()
	if whereClause != "" {
		query += "\n\t\tAND " + whereClause
	}
	query += "\n\tORDER BY playtime_ms, game_record_id\n\tLIMIT @limit;"
	args["limit"] = f.limit()
	return query, args
}

func (q *Queries) GetHighscores(
	ctx context.Context, filter HighscoreFilter,
) ([]Highscore, error) {
	query, args := filter.Query()
	rows, err := q.db.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Highscore])
}
