// Package grouping turns the flat question list of a paper into answerable
// units (standalone questions and case groups) and a navigation layout over
// the answerable questions.
package grouping

import (
	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

// Group is either a standalone question or a case background with its
// sub-questions. Exactly one of Standalone and Background is set.
type Group struct {
	Standalone   *models.Question
	Background   *models.Question
	SubQuestions []*models.Question
}

func (g Group) IsCase() bool {
	return g.Background != nil
}

// Answerable returns the questions this group contributes to the flattened
// sequence. A background never does.
func (g Group) Answerable() []*models.Question {
	if g.IsCase() {
		return g.SubQuestions
	}
	return []*models.Question{g.Standalone}
}

type Options struct {
	// PreserveOrder emits groups in a single stable pass, in the order their
	// first standalone question or background appears in the input. When
	// false every standalone question precedes every case group.
	PreserveOrder bool
}

// Layout is the derived, immutable structure of a paper for one session.
type Layout struct {
	Groups []Group
	// Flat is the navigable sequence of answerable questions.
	Flat []*models.Question
	// Index maps an answerable question id to its position in Flat.
	Index map[int]int
	// owner holds, for each position in Flat, the index of its group.
	owner []int
}

// caseEntry is one slot of the background registry.
type caseEntry struct {
	background *models.Question
	children   []*models.Question
}

// registry is an insertion-ordered map of case backgrounds keyed by id.
type registry struct {
	order []int
	byID  map[int]*caseEntry
}

func newRegistry() *registry {
	return &registry{byID: make(map[int]*caseEntry)}
}

func (r *registry) add(q *models.Question) {
	if _, ok := r.byID[q.ID]; ok {
		return
	}
	r.order = append(r.order, q.ID)
	r.byID[q.ID] = &caseEntry{background: q}
}

func (r *registry) get(id int) (*caseEntry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Build derives the layout for questions. It never fails: sub-questions whose
// parent is not a case background in the same list are dropped, and so are
// case backgrounds without children. Duplicate ids keep their first occurrence.
func Build(questions []models.Question, opts Options) *Layout {
	qs := dedupe(questions)

	reg := newRegistry()
	for _, q := range qs {
		if q.IsBackground() {
			reg.add(q)
		}
	}

	var groups []Group
	if opts.PreserveOrder {
		groups = stablePass(qs, reg)
	} else {
		groups = standaloneFirst(qs, reg)
	}

	return newLayout(groups)
}

func dedupe(questions []models.Question) []*models.Question {
	seen := make(map[int]struct{}, len(questions))
	out := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		q := q // per-iteration copy (go1.22 loopvar semantics); &q is retained below
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, &q)
	}
	return out
}

func standaloneFirst(qs []*models.Question, reg *registry) []Group {
	var groups []Group
	for _, q := range qs {
		switch {
		case q.IsBackground():
		case q.ParentCaseID != nil:
			if e, ok := reg.get(*q.ParentCaseID); ok {
				e.children = append(e.children, q)
			}
		default:
			groups = append(groups, Group{Standalone: q})
		}
	}

	for _, id := range reg.order {
		e := reg.byID[id]
		if len(e.children) == 0 {
			continue
		}
		groups = append(groups, Group{Background: e.background, SubQuestions: e.children})
	}
	return groups
}

func stablePass(qs []*models.Question, reg *registry) []Group {
	// Children are collected first so each case group is complete when it is emitted.
	for _, q := range qs {
		if q.IsBackground() || q.ParentCaseID == nil {
			continue
		}
		if e, ok := reg.get(*q.ParentCaseID); ok {
			e.children = append(e.children, q)
		}
	}

	var groups []Group
	emitted := make(map[int]bool)
	emitCase := func(id int) {
		if emitted[id] {
			return
		}
		emitted[id] = true
		e := reg.byID[id]
		if len(e.children) > 0 {
			groups = append(groups, Group{Background: e.background, SubQuestions: e.children})
		}
	}

	for _, q := range qs {
		switch {
		case q.IsBackground():
			emitCase(q.ID)
		case q.ParentCaseID != nil:
			if _, ok := reg.get(*q.ParentCaseID); ok {
				emitCase(*q.ParentCaseID)
			}
		default:
			groups = append(groups, Group{Standalone: q})
		}
	}
	return groups
}

func newLayout(groups []Group) *Layout {
	l := &Layout{
		Groups: groups,
		Index:  make(map[int]int),
	}
	for gi, g := range groups {
		for _, q := range g.Answerable() {
			l.Index[q.ID] = len(l.Flat)
			l.Flat = append(l.Flat, q)
			l.owner = append(l.owner, gi)
		}
	}
	return l
}

// Total is the number of answerable questions.
func (l *Layout) Total() int {
	return len(l.Flat)
}

// Question returns the answerable question with the given id.
func (l *Layout) Question(id int) (*models.Question, bool) {
	i, ok := l.Index[id]
	if !ok {
		return nil, false
	}
	return l.Flat[i], true
}

// At returns the answerable question at position i and, when it belongs to a
// case group, the shared background shown above it.
func (l *Layout) At(i int) (q *models.Question, background *models.Question, ok bool) {
	if i < 0 || i >= len(l.Flat) {
		return nil, nil, false
	}
	g := l.Groups[l.owner[i]]
	return l.Flat[i], g.Background, true
}
