package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avbuild/roomsync/internal/pkg/assets"
	"github.com/avbuild/roomsync/internal/pkg/usage"
)

type Database struct {
	conn *pgx.Conn
}

func NewDatabase(conn *pgx.Conn) *Database {
	return &Database{
		conn: conn,
	}
}

func (db *Database) Close(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close(ctx)
}

// LoadBindings implements assets.Store.
func (db *Database) LoadBindings(ctx context.Context) ([]assets.Binding, error) {
	const query = `
	SELECT identity, slot, name, type, instance_id
	FROM asset_binding
	ORDER BY slot;
	`
	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []assets.Binding
	for rows.Next() {
		var b assets.Binding
		if err := rows.Scan(&b.Identity, &b.Slot, &b.Name, &b.Type, &b.InstanceID); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		if err == pgx.ErrNoRows {
			return bindings, nil
		}
		return nil, err
	}
	return bindings, nil
}

// AppendBinding implements assets.Store.
func (db *Database) AppendBinding(ctx context.Context, b assets.Binding) error {
	const insertSQL = `
	INSERT INTO asset_binding (identity, slot, name, type, instance_id)
	VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := db.conn.Exec(ctx, insertSQL, b.Identity, b.Slot, b.Name, b.Type, b.InstanceID); err != nil {
		return err
	}
	return nil
}

// WriteUsage inserts one completed usage record. Records are immutable.
func (db *Database) WriteUsage(ctx context.Context, rec usage.Record) error {
	const insertSQL = `
	INSERT INTO usage_record (device_key, started_at, ended_at, duration_seconds)
	VALUES ($1, $2, $3, $4)
	`
	if _, err := db.conn.Exec(ctx, insertSQL,
		rec.DeviceKey, rec.Start, rec.End, int64(rec.Duration.Seconds())); err != nil {
		return err
	}
	return nil
}

// Cleanup trims usage telemetry older than ninety days.
func (db *Database) Cleanup(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, "DELETE FROM usage_record WHERE ended_at < $1", time.Now().AddDate(0, 0, -90)); err != nil {
		return err
	}
	return nil
}
