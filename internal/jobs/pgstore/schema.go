package pgstore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id BIGSERIAL PRIMARY KEY,
    owner TEXT NOT NULL DEFAULT '',
    isbn TEXT NOT NULL,
    status TEXT NOT NULL,
    failure_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_owner_created ON jobs(owner, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

CREATE TABLE IF NOT EXISTS documents (
    job_id BIGINT PRIMARY KEY REFERENCES jobs(id),
    language TEXT NOT NULL,
    model TEXT NOT NULL,
    title TEXT,
    authors_json JSONB NOT NULL DEFAULT '[]',
    sources_json JSONB NOT NULL DEFAULT '[]',
    source_reliability INTEGER NOT NULL,
    content_coverage INTEGER NOT NULL,
    cross_reference INTEGER NOT NULL,
    composite_confidence INTEGER NOT NULL,
    generated_summary TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
