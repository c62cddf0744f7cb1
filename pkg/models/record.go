package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskRecord archives one written measurement result when the optional
// Postgres archive is enabled.
type TaskRecord struct {
	bun.BaseModel `bun:"table:task_results,alias:tr"`

	ID        int64           `bun:",pk,autoincrement"`
	RunID     uuid.UUID       `bun:",notnull,type:uuid"`
	Task      string          `bun:",notnull"`
	Status    int             `bun:",notnull"`
	Result    json.RawMessage `bun:",type:jsonb"`
	CreatedAt time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}
