// Package reconcile computes and applies the changes that bring the host's managed
// units in line with the units generated from the jobs file.
package reconcile

import (
	"fmt"
	"path/filepath"

	"github.com/leefowlercu/dron/internal/servicemanager"
)

// ActionKind is the type of change a plan action makes.
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionUpdate
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Action is one planned change, keyed by unit file path.
type Action struct {
	Kind     ActionKind
	UnitFile string

	// OldBody is set for updates.
	OldBody string

	// NewBody is set for adds and updates.
	NewBody string
}

// Unit returns the unit file name.
func (a Action) Unit() string {
	return filepath.Base(a.UnitFile)
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Unit())
}

// Plan is an ordered list of actions.
type Plan []Action

// ComputePlan diffs two snapshots. Keys are visited as the current-only keys in
// current order, followed by every desired key in desired order. A key present
// on both sides is always an update, even when the bodies are identical.
func ComputePlan(current []servicemanager.UnitRecord, desired []servicemanager.UnitSpec) Plan {
	currentBodies := make(map[string]string, len(current))
	for _, r := range current {
		currentBodies[r.UnitFile] = r.Body
	}
	desiredFiles := make(map[string]bool, len(desired))
	for _, u := range desired {
		desiredFiles[u.File] = true
	}

	plan := make(Plan, 0, len(current)+len(desired))
	for _, r := range current {
		if !desiredFiles[r.UnitFile] {
			plan = append(plan, Action{Kind: ActionDelete, UnitFile: r.UnitFile})
		}
	}
	for _, u := range desired {
		if old, ok := currentBodies[u.File]; ok {
			plan = append(plan, Action{Kind: ActionUpdate, UnitFile: u.File, OldBody: old, NewBody: u.Body})
		} else {
			plan = append(plan, Action{Kind: ActionAdd, UnitFile: u.File, NewBody: u.Body})
		}
	}

	return plan
}

// Partition splits a plan by action kind, preserving order within each kind.
func (p Plan) Partition() (deletes, updates, adds []Action) {
	for _, a := range p {
		switch a.Kind {
		case ActionDelete:
			deletes = append(deletes, a)
		case ActionUpdate:
			updates = append(updates, a)
		case ActionAdd:
			adds = append(adds, a)
		}
	}
	return deletes, updates, adds
}
