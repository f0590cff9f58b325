package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quoteengine/internal/core/id"
)

type auditCols struct {
	CreatedAt time.Time `db:"created_at"`
}

type sampleRow struct {
	ID       id.ID      `db:"id"`
	ItemCode string     `db:"item_code"`
	Until    *time.Time `db:"effective_until"`
	Ignored  string     `db:"-"`
	NoTag    string
	auditCols
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()
	assert.Equal(t, []string{"id", "item_code", "effective_until", "created_at"}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := sampleRow{
		ID:        id.New(),
		ItemCode:  "DEV-STD",
		Ignored:   "x",
		NoTag:     "y",
		auditCols: auditCols{CreatedAt: now},
	}

	m := StructToMap(&row)

	assert.Len(t, m, 4)
	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, "DEV-STD", m["item_code"])
	assert.Equal(t, (*time.Time)(nil), m["effective_until"])
	assert.Equal(t, now, m["created_at"])
}
