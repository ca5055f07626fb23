package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"investor-matching/internal/models"
)

type startupRow = models.Startup

type StartupRepository struct {
	db *DB
}

// Put adds or replaces a startup profile.
func (r *StartupRepository) Put(s models.Startup) {
	r.db.write(context.Background(), func() {
		s.Tags = append([]string(nil), s.Tags...)
		r.db.startups[s.ID] = s
	})
}

// LoadFile seeds profiles from a JSON array of startups.
func (r *StartupRepository) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var startups []models.Startup
	if err := json.Unmarshal(raw, &startups); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	for _, s := range startups {
		r.Put(s)
	}
	return len(startups), nil
}

func (r *StartupRepository) Get(_ context.Context, id string) (*models.Startup, error) {
	var out *models.Startup
	r.db.read(func() {
		if s, ok := r.db.startups[id]; ok {
			out = &s
		}
	})
	return out, nil
}

func (r *StartupRepository) GetMany(_ context.Context, ids []string) ([]*models.Startup, error) {
	var out []*models.Startup
	r.db.read(func() {
		for _, id := range ids {
			if s, ok := r.db.startups[id]; ok {
				s := s
				out = append(out, &s)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StartupRepository) List(_ context.Context, f models.CandidateFilter) ([]*models.Startup, error) {
	var out []*models.Startup
	r.db.read(func() {
		for _, s := range r.db.startups {
			out = append(out, &s)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, f.Limit, f.Offset), nil
}

func (r *StartupRepository) FounderOwns(_ context.Context, founderID, startupID string) (bool, error) {
	owns := false
	r.db.read(func() {
		s, ok := r.db.startups[startupID]
		owns = ok && s.FounderID == founderID
	})
	return owns, nil
}
