package retention

import (
	"context"
	"fmt"

	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// DayPlan is what a cleanup would do to one day group.
type DayPlan struct {
	DayKey string              `json:"day"`
	Keep   []snapshot.Snapshot `json:"keep"`
	Drop   []snapshot.Snapshot `json:"drop"`
}

// Plan is a dry run of CleanOldBackups.
type Plan struct {
	Source    string    `json:"source"`
	Dir       string    `json:"dir"`
	MaxPerDay int       `json:"maxPerDay"`
	Days      []DayPlan `json:"days"`
}

// Total counts the snapshots in the plan.
func (p Plan) Total() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Keep) + len(d.Drop)
	}
	return n
}

// Dropped counts the snapshots a cleanup would delete.
func (p Plan) Dropped() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Drop)
	}
	return n
}

// Plan lists the snapshots of input and what a cleanup would keep, without
// touching anything or writing to the audit log. A missing Backups
// directory yields an empty plan.
func (e *Engine) Plan(ctx context.Context, input string) (Plan, error) {
	source := snapshot.ResolveSource(input)
	p := Plan{
		Source:    source,
		Dir:       snapshot.BackupDir(source),
		MaxPerDay: e.MaxPerDay(),
	}

	ok, err := e.fs.Exists(p.Dir)
	if err != nil {
		return p, fmt.Errorf("checking %s: %w", p.Dir, err)
	}
	if !ok {
		return p, nil
	}

	snaps, err := scan(ctx, e.fs, p.Dir)
	if err != nil {
		return p, fmt.Errorf("listing %s: %w", p.Dir, err)
	}

	for _, g := range GroupByDay(snaps) {
		keep, drop := Thin(g.Snapshots, p.MaxPerDay)
		p.Days = append(p.Days, DayPlan{DayKey: g.DayKey, Keep: keep, Drop: drop})
	}
	return p, nil
}
