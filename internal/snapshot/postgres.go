package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/watchheat/internal/contracts"
)

// PostgresStore keeps snapshots in heat.snapshots. Each Put runs in its own
// transaction holding a per-item advisory lock, so writes to one item are
// serialised while other items proceed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an existing pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the schema and table if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return storageErr("ensure schema", err)
		}
	}
	return nil
}

const selectColumns = `item_id, obs_date, price, listings, days_on_market, demand_count`

// Put implements contracts.SnapshotStore
func (s *PostgresStore) Put(ctx context.Context, obs *contracts.Observation, today time.Time) error {
	if err := checkPut(obs, today); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("put: begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, obs.ItemID); err != nil {
		return storageErr("put: lock", err)
	}

	existing, err := scanOne(tx.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM heat.snapshots WHERE item_id = $1 AND obs_date = $2 FOR UPDATE`,
		obs.ItemID, obs.Date))
	if err != nil {
		return storageErr("put: select", err)
	}

	action, err := decidePut(existing, obs, today)
	if err != nil {
		return err
	}

	switch action {
	case actionNoop:
		return nil
	case actionInsert:
		_, err = tx.Exec(ctx, `
			INSERT INTO heat.snapshots (item_id, obs_date, price, listings, days_on_market, demand_count)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, obs.ItemID, obs.Date, obs.Price, obs.Listings, obs.DaysOnMarket, obs.DemandCount)
	case actionUpdate:
		_, err = tx.Exec(ctx, `
			UPDATE heat.snapshots SET
				price = $3,
				listings = $4,
				days_on_market = $5,
				demand_count = $6,
				updated_at = NOW()
			WHERE item_id = $1 AND obs_date = $2
		`, obs.ItemID, obs.Date, obs.Price, obs.Listings, obs.DaysOnMarket, obs.DemandCount)
	}
	if err != nil {
		return storageErr("put: write", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("put: commit", err)
	}
	return nil
}

// Get implements contracts.SnapshotStore
func (s *PostgresStore) Get(ctx context.Context, itemID string, date time.Time) (*contracts.Observation, error) {
	obs, err := scanOne(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM heat.snapshots WHERE item_id = $1 AND obs_date = $2`,
		itemID, contracts.Day(date)))
	if err != nil {
		return nil, storageErr("get", err)
	}
	return obs, nil
}

// Range implements contracts.SnapshotStore
func (s *PostgresStore) Range(ctx context.Context, itemID string, from, to time.Time) ([]*contracts.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM heat.snapshots
		WHERE item_id = $1 AND obs_date BETWEEN $2 AND $3
		ORDER BY obs_date
	`, itemID, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, storageErr("range", err)
	}
	defer rows.Close()

	var out []*contracts.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, storageErr("range: scan", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("range: rows", err)
	}
	return out, nil
}

// Items implements contracts.SnapshotStore
func (s *PostgresStore) Items(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT item_id FROM heat.snapshots GROUP BY item_id ORDER BY item_id COLLATE "C"`)
	if err != nil {
		return nil, storageErr("items", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("items: scan", err)
	}
	return ids, nil
}

// scanOne reads a single row, returning (nil, nil) when there is none
func scanOne(row pgx.Row) (*contracts.Observation, error) {
	obs, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return obs, err
}

func scanObservation(row pgx.Row) (*contracts.Observation, error) {
	var (
		obs      contracts.Observation
		listings *int32
		demand   *int32
	)
	if err := row.Scan(&obs.ItemID, &obs.Date, &obs.Price, &listings, &obs.DaysOnMarket, &demand); err != nil {
		return nil, err
	}
	obs.Date = contracts.Day(obs.Date)
	obs.Listings = intPtr(listings)
	obs.DemandCount = intPtr(demand)
	return &obs, nil
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

