package snapshot

// schemaStatements create the snapshot table. All statements are idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS heat`,
	`CREATE TABLE IF NOT EXISTS heat.snapshots (
		item_id        TEXT             NOT NULL,
		obs_date       DATE             NOT NULL,
		price          DOUBLE PRECISION NOT NULL CHECK (price > 0),
		listings       INTEGER          CHECK (listings >= 0),
		days_on_market DOUBLE PRECISION CHECK (days_on_market >= 0),
		demand_count   INTEGER          CHECK (demand_count >= 0),
		created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (item_id, obs_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_obs_date ON heat.snapshots (obs_date)`,
}
