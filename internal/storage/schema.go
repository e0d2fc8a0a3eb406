package storage

const schema = `
-- The 'questions' table stores one row per tracked practice problem.
-- last_solved and next_review are NULL until the first mark-solved cycle;
-- a NULL next_review means the question is due immediately.
CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    source_url TEXT NOT NULL UNIQUE COLLATE NOCASE,
    difficulty TEXT NOT NULL CHECK (difficulty IN ('Easy', 'Medium', 'Hard')),
    last_solved DATETIME,
    next_review DATETIME,
    solve_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
`
