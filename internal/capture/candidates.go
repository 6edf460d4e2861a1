package capture

import (
	"context"
	"fmt"
	"sort"

	"github.com/veridio/iriscore/internal/db"
	"github.com/veridio/iriscore/internal/iris"
)

// Repository is the enrolled-subject store the controller verifies against.
// It is an injected capability: the controller never constructs one and
// only touches it from its own task.
type Repository interface {
	Insert(ctx context.Context, r *db.SubjectRecord) error
	GetByID(ctx context.Context, id string) (*db.SubjectRecord, error)
	ListAll(ctx context.Context) ([]*db.SubjectRecord, error)
	Search(ctx context.Context, q string) ([]*db.SubjectRecord, error)
	ListWithTemplates(ctx context.Context) ([]*db.SubjectRecord, error)
	Update(ctx context.Context, r *db.SubjectRecord) error
	Delete(ctx context.Context, id string) error
}

// Candidate is one enrolled subject scored against a probe template.
type Candidate struct {
	Record   *db.SubjectRecord
	Distance float64
	Zone     iris.MatchZone
}

// FindCandidates compares the probe against every enrolled subject. Each
// subject scores as the minimum Hamming distance across its stored
// templates; results are sorted ascending and anything outside the suggest
// zone is dropped.
func FindCandidates(ctx context.Context, repo Repository, probe iris.Template, confirm, suggest float64) ([]Candidate, error) {
	records, err := repo.ListWithTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", iris.ErrRepositoryUnavailable, err)
	}

	var out []Candidate
	for _, rec := range records {
		best := 1.0
		for _, stored := range rec.Templates {
			if d := iris.HammingDistance(probe, iris.Template(stored)); d < best {
				best = d
			}
		}
		zone := iris.ZoneFor(best, confirm, suggest)
		if zone == iris.ZoneNone {
			continue
		}
		out = append(out, Candidate{Record: rec, Distance: best, Zone: zone})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}
