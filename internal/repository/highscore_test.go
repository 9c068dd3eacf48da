package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/vancomm/minesweeper/internal/mines"
)

func TestHighscoreWhereClause(t *testing.T) {
	username := "alice"
	tests := []struct {
		name   string
		filter HighscoreFilter
		clause string
		args   pgx.NamedArgs
	}{
		{"empty", HighscoreFilter{}, "", pgx.NamedArgs{}},
		{
			"username",
			HighscoreFilter{Username: &username},
			"username = @username",
			pgx.NamedArgs{"username": "alice"},
		},
		{
			"difficulty",
			HighscoreFilter{Difficulty: &mines.Expert},
			"rows = @rows AND cols = @cols AND mine_count = @mine_count",
			pgx.NamedArgs{"rows": 16, "cols": 30, "mine_count": 99},
		},
		{
			"both",
			HighscoreFilter{Username: &username, Difficulty: &mines.Classic},
			"username = @username AND rows = @rows AND cols = @cols AND mine_count = @mine_count",
			pgx.NamedArgs{"username": "alice", "rows": 9, "cols": 9, "mine_count": 10},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clause, args := test.filter.WhereClause()
			assert.Equal(t, test.clause, clause)
			assert.Equal(t, test.args, args)
		})
	}
}

func TestHighscoreQuery(t *testing.T) {
	query, args := HighscoreFilter{}.Query()
	assert.NotContains(t, query, "AND")
	assert.Contains(t, query, "ORDER BY playtime_ms")
	assert.Equal(t, DefaultHighscoreLimit, args["limit"])

	username := "bob"
	query, args = HighscoreFilter{Username: &username, Limit: 5}.Query()
	assert.Contains(t, query, "AND username = @username")
	assert.Equal(t, 5, args["limit"])

	_, args = HighscoreFilter{Limit: 100000}.Query()
	assert.Equal(t, DefaultHighscoreLimit, args["limit"])
}

func TestCreateGameRecordArgs(t *testing.T) {
	args := CreateGameRecordParams{SessionID: "s", Rows: 9, Cols: 9, MineCount: 10}.args()
	assert.Nil(t, args["player_id"])

	player := int64(4)
	args = CreateGameRecordParams{PlayerID: &player}.args()
	assert.Equal(t, int64(4), args["player_id"])
}
