package sessions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo stores sessions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu           sync.RWMutex
	byID         map[string]Session
	enhancements map[string][]Enhancement
	now          func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:         make(map[string]Session),
		enhancements: make(map[string][]Enhancement),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the session.
func (r *MemoryRepo) Create(ctx context.Context, s Session) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s = prepareSession(s, uuid.NewString(), r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.ID]; exists {
		return "", fmt.Errorf("%w: duplicate id %s", ErrStoreWrite, s.ID)
	}
	r.byID[s.ID] = cloneSession(s)
	return s.ID, nil
}

// Get returns a session by its ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s), nil
}

// List returns sessions matching f, newest first.
func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f = f.Normalize()
	title := strings.ToLower(f.JobTitle)

	r.mu.RLock()
	matched := make([]Session, 0, len(r.byID))
	for _, s := range r.byID {
		if title != "" && !strings.Contains(strings.ToLower(s.JobTitle), title) {
			continue
		}
		if f.MinScore != nil && s.Score < *f.MinScore {
			continue
		}
		if f.MaxScore != nil && s.Score > *f.MaxScore {
			continue
		}
		if f.FileKind != "" && s.FileKind != f.FileKind {
			continue
		}
		matched = append(matched, cloneSession(s))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if f.Offset >= len(matched) {
		return []Session{}, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], nil
}

// Stats aggregates the stored sessions.
func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	now := r.now()
	week := now.AddDate(0, 0, -7)
	month := now.AddDate(0, 0, -30)

	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{FileTypeDistribution: map[string]int{}, TopJobTitles: []TitleCount{}}
	titles := map[string]int{}
	sum := 0
	for _, s := range r.byID {
		if st.TotalSessions == 0 || s.Score > st.MaxScore {
			st.MaxScore = s.Score
		}
		if st.TotalSessions == 0 || s.Score < st.MinScore {
			st.MinScore = s.Score
		}
		st.TotalSessions++
		sum += s.Score
		st.FileTypeDistribution[s.FileKind]++
		titles[s.JobTitle]++
		if s.Score >= HighScoreThreshold {
			st.HighScoring++
		}
		if s.Score < LowScoreThreshold {
			st.LowScoring++
		}
		if !s.CreatedAt.Before(week) {
			st.SessionsLast7Days++
		}
		if !s.CreatedAt.Before(month) {
			st.SessionsLast30Days++
		}
	}
	if st.TotalSessions > 0 {
		st.AverageScore = round2(float64(sum) / float64(st.TotalSessions))
	}

	improvements, n := 0, 0
	for _, list := range r.enhancements {
		if len(list) > 0 {
			st.EnhancedSessions++
		}
		for _, e := range list {
			improvements += e.Improvement()
			n++
		}
	}
	if n > 0 {
		st.AverageImprovement = round2(float64(improvements) / float64(n))
	}

	for title, count := range titles {
		st.TopJobTitles = append(st.TopJobTitles, TitleCount{JobTitle: title, Count: count})
	}
	sort.Slice(st.TopJobTitles, func(i, j int) bool {
		a, b := st.TopJobTitles[i], st.TopJobTitles[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.JobTitle < b.JobTitle
	})
	if len(st.TopJobTitles) > topTitlesLimit {
		st.TopJobTitles = st.TopJobTitles[:topTitlesLimit]
	}
	return st, nil
}

// Reset removes everything.
func (r *MemoryRepo) Reset(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := []string{}
	for _, s := range r.byID {
		if s.FileKey != "" {
			keys = append(keys, s.FileKey)
		}
	}
	sort.Strings(keys)
	r.byID = make(map[string]Session)
	r.enhancements = make(map[string][]Enhancement)
	return keys, nil
}

// CreateEnhancement stores an enhancement for an existing session.
func (r *MemoryRepo) CreateEnhancement(ctx context.Context, e Enhancement) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e = prepareEnhancement(e, uuid.NewString(), r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.SessionID]; !ok {
		return "", fmt.Errorf("%w: unknown session %s", ErrStoreWrite, e.SessionID)
	}
	r.enhancements[e.SessionID] = append(r.enhancements[e.SessionID], e)
	return e.ID, nil
}

// ListEnhancements returns a session's enhancements, oldest first.
func (r *MemoryRepo) ListEnhancements(ctx context.Context, sessionID string) ([]Enhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Enhancement, len(r.enhancements[sessionID]))
	copy(out, r.enhancements[sessionID])
	return out, nil
}

// LatestEnhancement returns the newest enhancement of a session.
func (r *MemoryRepo) LatestEnhancement(ctx context.Context, sessionID string) (Enhancement, error) {
	list, err := r.ListEnhancements(ctx, sessionID)
	if err != nil {
		return Enhancement{}, err
	}
	if len(list) == 0 {
		return Enhancement{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

func cloneSession(s Session) Session {
	s.Strengths = append([]string{}, s.Strengths...)
	s.MissingSkills = append([]string{}, s.MissingSkills...)
	s.ExperienceGaps = append([]string{}, s.ExperienceGaps...)
	s.Recommendations = append([]string{}, s.Recommendations...)
	return s
}

var _ Repo = (*MemoryRepo)(nil)
