package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	storagedb "cv-analyzer/internal/shared/storage/db"
)

// SQLRepo implements Repo on database/sql for Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect storagedb.Dialect
	now     func() time.Time
}

// NewSQLRepo constructs a SQLRepo.
func NewSQLRepo(db *sql.DB, dialect storagedb.Dialect) *SQLRepo {
	return &SQLRepo{
		DB:      db,
		Dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const sessionColumns = `id, current_job_title, target_job_title, job_title, job_description, cv_text, text_length,
       file_name, file_type, file_kind, file_key, score, strengths, missing_skills, experience_gaps,
       recommendations, summary, created_at`

const enhancementColumns = `id, session_id, skills, experience, achievements, previous_score, new_score,
       strengths, missing_skills, experience_gaps, recommendations, summary, created_at`

func (r *SQLRepo) q(query string) string {
	return storagedb.Rebind(r.Dialect, query)
}

// Create inserts a session.
func (r *SQLRepo) Create(ctx context.Context, s Session) (string, error) {
	s = prepareSession(s, uuid.NewString(), r.now())
	lists, err := encodeLists(s.Strengths, s.MissingSkills, s.ExperienceGaps, s.Recommendations)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	query := r.q(`
INSERT INTO cv_sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.DB.ExecContext(ctx, query,
		s.ID,
		s.CurrentJobTitle,
		s.TargetJobTitle,
		s.JobTitle,
		s.JobDescription,
		s.CVText,
		s.TextLength,
		s.FileName,
		s.FileType,
		s.FileKind,
		s.FileKey,
		s.Score,
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		s.Summary,
		s.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert session: %w", ErrStoreWrite, err)
	}
	return s.ID, nil
}

// Get returns a session by ID.
func (r *SQLRepo) Get(ctx context.Context, id string) (Session, error) {
	query := r.q(`SELECT ` + sessionColumns + ` FROM cv_sessions WHERE id = ? LIMIT 1`)
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: get session: %w", ErrStoreRead, err)
	}
	return s, nil
}

// List returns sessions matching f, newest first.
func (r *SQLRepo) List(ctx context.Context, f Filter) ([]Session, error) {
	f = f.Normalize()
	var (
		where []string
		args  []any
	)
	if f.JobTitle != "" {
		where = append(where, `LOWER(job_title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.JobTitle))+"%")
	}
	if f.MinScore != nil {
		where = append(where, "score >= ?")
		args = append(args, *f.MinScore)
	}
	if f.MaxScore != nil {
		where = append(where, "score <= ?")
		args = append(args, *f.MaxScore)
	}
	if f.FileKind != "" {
		where = append(where, "file_kind = ?")
		args = append(args, f.FileKind)
	}

	var b strings.Builder
	b.WriteString("SELECT " + sessionColumns + " FROM cv_sessions")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, r.q(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", ErrStoreRead, err)
	}
	defer rows.Close()

	out := make([]Session, 0, f.Limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan session: %w", ErrStoreRead, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", ErrStoreRead, err)
	}
	return out, nil
}

// Stats aggregates sessions and enhancements at query time.
func (r *SQLRepo) Stats(ctx context.Context) (Stats, error) {
	now := r.now()
	st := Stats{FileTypeDistribution: map[string]int{}, TopJobTitles: []TitleCount{}}

	summary := r.q(`
SELECT COUNT(*),
       COALESCE(AVG(CAST(score AS DOUBLE PRECISION)), 0),
       COALESCE(MAX(score), 0),
       COALESCE(MIN(score), 0),
       COALESCE(SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN score < ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
FROM cv_sessions`)
	var avg float64
	err := r.DB.QueryRowContext(ctx, summary,
		HighScoreThreshold,
		LowScoreThreshold,
		now.AddDate(0, 0, -7),
		now.AddDate(0, 0, -30),
	).Scan(&st.TotalSessions, &avg, &st.MaxScore, &st.MinScore, &st.HighScoring, &st.LowScoring,
		&st.SessionsLast7Days, &st.SessionsLast30Days)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: session stats: %w", ErrStoreRead, err)
	}
	st.AverageScore = round2(avg)

	var improvement float64
	err = r.DB.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT session_id),
       COALESCE(AVG(CAST(new_score - previous_score AS DOUBLE PRECISION)), 0)
FROM cv_enhancements`).Scan(&st.EnhancedSessions, &improvement)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: enhancement stats: %w", ErrStoreRead, err)
	}
	st.AverageImprovement = round2(improvement)

	if err := r.collectCounts(ctx, `SELECT file_kind, COUNT(*) FROM cv_sessions GROUP BY file_kind`, func(key string, n int) {
		st.FileTypeDistribution[key] = n
	}); err != nil {
		return Stats{}, err
	}

	top := r.q(`
SELECT job_title, COUNT(*) AS n
FROM cv_sessions
GROUP BY job_title
ORDER BY n DESC, job_title ASC
LIMIT ?`)
	if err := r.collectCounts(ctx, top, func(key string, n int) {
		st.TopJobTitles = append(st.TopJobTitles, TitleCount{JobTitle: key, Count: n})
	}, topTitlesLimit); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (r *SQLRepo) collectCounts(ctx context.Context, query string, add func(string, int), args ...any) error {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: stats: %w", ErrStoreRead, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("%w: stats: %w", ErrStoreRead, err)
		}
		add(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: stats: %w", ErrStoreRead, err)
	}
	return nil
}

// Reset deletes every enhancement and session in one transaction.
func (r *SQLRepo) Reset(ctx context.Context) ([]string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin reset: %w", ErrStoreWrite, err)
	}
	defer tx.Rollback()

	keys, err := fileKeys(ctx, tx)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{`DELETE FROM cv_enhancements`, `DELETE FROM cv_sessions`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%w: reset: %w", ErrStoreWrite, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit reset: %w", ErrStoreWrite, err)
	}
	return keys, nil
}

func fileKeys(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT file_key FROM cv_sessions WHERE file_key <> '' ORDER BY file_key`)
	if err != nil {
		return nil, fmt.Errorf("%w: reset: %w", ErrStoreWrite, err)
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: reset: %w", ErrStoreWrite, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reset: %w", ErrStoreWrite, err)
	}
	return keys, nil
}

func (r *SQLRepo) CreateEnhancement(ctx context.Context, e Enhancement) (string, error) {
	e = prepareEnhancement(e, uuid.NewString(), r.now())
	lists, err := encodeLists(e.Skills, e.Experience, e.Achievements, e.Strengths, e.MissingSkills, e.ExperienceGaps, e.Recommendations)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	query := r.q(`
INSERT INTO cv_enhancements (` + enhancementColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.DB.ExecContext(ctx, query,
		e.ID,
		e.SessionID,
		lists[0],
		lists[1],
		lists[2],
		e.PreviousScore,
		e.NewScore,
		lists[3],
		lists[4],
		lists[5],
		lists[6],
		e.Summary,
		e.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert enhancement: %w", ErrStoreWrite, err)
	}
	return e.ID, nil
}

// ListEnhancements returns a session's enhancements, oldest first.
func (r *SQLRepo) ListEnhancements(ctx context.Context, sessionID string) ([]Enhancement, error) {
	query := r.q(`SELECT ` + enhancementColumns + ` FROM cv_enhancements WHERE session_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list enhancements: %w", ErrStoreRead, err)
	}
	defer rows.Close()

	out := []Enhancement{}
	for rows.Next() {
		e, err := scanEnhancement(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan enhancement: %w", ErrStoreRead, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list enhancements: %w", ErrStoreRead, err)
	}
	return out, nil
}

// LatestEnhancement returns the newest enhancement of a session.
func (r *SQLRepo) LatestEnhancement(ctx context.Context, sessionID string) (Enhancement, error) {
	query := r.q(`SELECT ` + enhancementColumns + ` FROM cv_enhancements WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`)
	e, err := scanEnhancement(r.DB.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Enhancement{}, ErrNotFound
	}
	if err != nil {
		return Enhancement{}, fmt.Errorf("%w: latest enhancement: %w", ErrStoreRead, err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var strengths, missing, gaps, recs string
	err := row.Scan(
		&s.ID,
		&s.CurrentJobTitle,
		&s.TargetJobTitle,
		&s.JobTitle,
		&s.JobDescription,
		&s.CVText,
		&s.TextLength,
		&s.FileName,
		&s.FileType,
		&s.FileKind,
		&s.FileKey,
		&s.Score,
		&strengths,
		&missing,
		&gaps,
		&recs,
		&s.Summary,
		&s.CreatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	if err := decodeLists([]string{strengths, missing, gaps, recs},
		&s.Strengths, &s.MissingSkills, &s.ExperienceGaps, &s.Recommendations); err != nil {
		return Session{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func scanEnhancement(row rowScanner) (Enhancement, error) {
	var e Enhancement
	var skills, experience, achievements, strengths, missing, gaps, recs string
	err := row.Scan(
		&e.ID,
		&e.SessionID,
		&skills,
		&experience,
		&achievements,
		&e.PreviousScore,
		&e.NewScore,
		&strengths,
		&missing,
		&gaps,
		&recs,
		&e.Summary,
		&e.CreatedAt,
	)
	if err != nil {
		return Enhancement{}, err
	}
	if err := decodeLists([]string{skills, experience, achievements, strengths, missing, gaps, recs},
		&e.Skills, &e.Experience, &e.Achievements, &e.Strengths, &e.MissingSkills, &e.ExperienceGaps, &e.Recommendations); err != nil {
		return Enhancement{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func encodeLists(lists ...[]string) ([]string, error) {
	out := make([]string, len(lists))
	for i, l := range lists {
		b, err := json.Marshal(nonNil(l))
		if err != nil {
			return nil, fmt.Errorf("encode list: %w", err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func decodeLists(raw []string, dst ...*[]string) error {
	for i, r := range raw {
		var items []string
		if strings.TrimSpace(r) != "" {
			if err := json.Unmarshal([]byte(r), &items); err != nil {
				return fmt.Errorf("decode list: %w", err)
			}
		}
		*dst[i] = nonNil(items)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ Repo = (*SQLRepo)(nil)
