package engine

import (
	"context"
	"fmt"
	"strings"

	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

// Stage is one step of the import pipeline. Reads and Writes name the remap
// tables a stage consumes and fills. They only drive the run order: remap
// access at run time is not checked against them.
type Stage interface {
	Name() string
	Reads() []store.Kind
	Writes() []store.Kind
	Run(ctx context.Context, im *importer) error
}

// defaultStages lists the pipeline stages. orderStages derives the run order
// from the declared reads and writes, not from this slice.
func defaultStages() []Stage {
	return []Stage{
		usersStage{},
		taxonomyStage{},
		postsStage{},
		commentsStage{},
		menusStage{},
		pluginsStage{},
		redirectsStage{},
		contentStage{},
	}
}

// orderStages sorts stages so every stage runs after the writers of the
// kinds it reads. Two writers of one kind or a read cycle is an error.
func orderStages(stages []Stage) ([]Stage, error) {
	writer := make(map[store.Kind]string)
	byName := make(map[string]Stage, len(stages))
	for _, s := range stages {
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage %s", s.Name())
		}
		byName[s.Name()] = s
		for _, k := range s.Writes() {
			if other, ok := writer[k]; ok {
				return nil, fmt.Errorf("stages %s and %s both write %s", other, s.Name(), k)
			}
			writer[k] = s.Name()
		}
	}

	nodes := make([]*schema.Node, 0, len(stages))
	for _, s := range stages {
		n := &schema.Node{Name: s.Name()}
		for _, k := range s.Reads() {
			if w, ok := writer[k]; ok && w != s.Name() {
				n.Dependencies = append(n.Dependencies, w)
			}
		}
		nodes = append(nodes, n)
	}

	sorted, broken := schema.SortByDependencies(nodes)
	if len(broken) > 0 {
		return nil, fmt.Errorf("stage dependency cycle through %s", strings.Join(broken, ", "))
	}
	out := make([]Stage, len(sorted))
	for i, n := range sorted {
		out[i] = byName[n.Name]
	}
	return out, nil
}
