package store

const schema = `
CREATE TABLE IF NOT EXISTS app_history (
    package_name TEXT PRIMARY KEY,
    process_name TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    first_launched TEXT NOT NULL,
    last_launched TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_app_history_count ON app_history(count DESC);
CREATE INDEX IF NOT EXISTS idx_app_history_last ON app_history(last_launched);
`
