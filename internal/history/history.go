// Package history records answered diagnosis requests for later review.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one answered request.
type Record struct {
	ID           uuid.UUID
	Input        json.RawMessage
	Response     json.RawMessage
	ModelVersion string
	CreatedAt    time.Time
}

// Store persists records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
	Close()
}

// NewRecord marshals input and response into a fresh record.
func NewRecord(input, response any, modelVersion string) (Record, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return Record{}, fmt.Errorf("marshal input: %w", err)
	}
	out, err := json.Marshal(response)
	if err != nil {
		return Record{}, fmt.Errorf("marshal response: %w", err)
	}
	return Record{
		ID:           uuid.New(),
		Input:        in,
		Response:     out,
		ModelVersion: modelVersion,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Open connects to the store selected by driver ("postgres" or "sqlite") and
// creates the history table if needed.
func Open(ctx context.Context, driver, url string) (Store, error) {
	switch driver {
	case "postgres", "":
		return OpenPostgres(ctx, url)
	case "sqlite":
		return OpenSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}
