package reconcile

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/dron/internal/jobs"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

func records(files ...string) []servicemanager.UnitRecord {
	out := make([]servicemanager.UnitRecord, 0, len(files))
	for _, f := range files {
		out = append(out, servicemanager.UnitRecord{UnitFile: f, Body: "old " + f})
	}
	return out
}

func specs(files ...string) []servicemanager.UnitSpec {
	out := make([]servicemanager.UnitSpec, 0, len(files))
	for _, f := range files {
		out = append(out, servicemanager.UnitSpec{Name: f, File: f, Body: "new " + f})
	}
	return out
}

func summary(p Plan) []string {
	out := make([]string, 0, len(p))
	for _, a := range p {
		out = append(out, a.String())
	}
	return out
}

func TestComputePlan_ScenarioA(t *testing.T) {
	b, dir := newFakeBackend(t)
	desired := compile(t, b, dailyJob, manualJob)

	plan := ComputePlan(nil, desired)
	assert.Equal(t, []string{"add job1.service", "add job1.timer", "add job2.service"}, summary(plan))
	for _, a := range plan {
		assert.NotEqual(t, dir+"/job2.timer", a.UnitFile)
	}
}

func TestComputePlan_ScenarioB(t *testing.T) {
	current := []servicemanager.UnitRecord{
		{UnitFile: "/u/job1.service", Body: "bodyA"},
		{UnitFile: "/u/job1.timer", Body: "timer"},
	}
	desired := []servicemanager.UnitSpec{
		{Name: "job1.service", File: "/u/job1.service", Body: "bodyB"},
	}

	plan := ComputePlan(current, desired)
	require.Len(t, plan, 2)
	assert.Equal(t, []string{"delete job1.timer", "update job1.service"}, summary(plan))

	deletes, updates, adds := plan.Partition()
	assert.Empty(t, adds)
	require.Len(t, deletes, 1)
	require.Len(t, updates, 1)
	assert.Equal(t, Action{Kind: ActionUpdate, UnitFile: "/u/job1.service", OldBody: "bodyA", NewBody: "bodyB"}, updates[0])
	assert.Equal(t, "/u/job1.timer", deletes[0].UnitFile)
}

func TestComputePlan_KeyOrder(t *testing.T) {
	plan := ComputePlan(records("c", "a", "b"), specs("b", "d", "a"))
	assert.Equal(t, []string{"delete c", "update b", "add d", "update a"}, summary(plan))
}

func TestComputePlan_IdenticalBodiesAreStillUpdates(t *testing.T) {
	current := []servicemanager.UnitRecord{{UnitFile: "x", Body: "same"}}
	desired := []servicemanager.UnitSpec{{File: "x", Body: "same"}}

	plan := ComputePlan(current, desired)
	require.Len(t, plan, 1)
	assert.Equal(t, ActionUpdate, plan[0].Kind)
}

func TestComputePlan_PartitionIsExhaustiveAndDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	universe := make([]string, 12)
	for i := range universe {
		universe[i] = fmt.Sprintf("/u/unit%02d.service", i)
	}

	for round := 0; round < 200; round++ {
		var cur, des []string
		for _, f := range universe {
			if rng.Intn(2) == 0 {
				cur = append(cur, f)
			}
			if rng.Intn(2) == 0 {
				des = append(des, f)
			}
		}
		rng.Shuffle(len(des), func(i, k int) { des[i], des[k] = des[k], des[i] })

		plan := ComputePlan(records(cur...), specs(des...))

		inCur := toSet(cur)
		inDes := toSet(des)
		seen := make(map[string]int)
		for _, a := range plan {
			seen[a.UnitFile]++
			switch a.Kind {
			case ActionDelete:
				assert.True(t, inCur[a.UnitFile] && !inDes[a.UnitFile])
			case ActionUpdate:
				assert.True(t, inCur[a.UnitFile] && inDes[a.UnitFile])
			case ActionAdd:
				assert.True(t, !inCur[a.UnitFile] && inDes[a.UnitFile])
			}
		}

		for f := range union(inCur, inDes) {
			assert.Equal(t, 1, seen[f], "round %d: %s", round, f)
		}
		assert.Len(t, seen, len(union(inCur, inDes)))

		deletes, updates, adds := plan.Partition()
		assert.Equal(t, len(plan), len(deletes)+len(updates)+len(adds))
	}
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func union(a, b map[string]bool) map[string]bool {
	m := make(map[string]bool, len(a)+len(b))
	for k := range a {
		m[k] = true
	}
	for k := range b {
		m[k] = true
	}
	return m
}

func TestCompile_DuplicateJobNames(t *testing.T) {
	b, _ := newFakeBackend(t)

	_, err := Compile(context.Background(), b, []jobs.Job{dailyJob, dailyJob})
	var verrs jobs.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, err.Error(), "duplicate")
	assert.Zero(t, b.verifyCalls, "validation happens before any external call")
}

func TestCompile_CollectsGenerationErrors(t *testing.T) {
	launchd, err := servicemanager.New(servicemanager.PlatformMacOS, servicemanager.Options{UnitsDir: t.TempDir()})
	require.NoError(t, err)

	_, err = Compile(context.Background(), launchd, []jobs.Job{
		{Name: "a", Command: jobs.Shell("/bin/true"), Schedule: jobs.Calendar("weekly")},
		{Name: "b", Command: jobs.Shell("/bin/true"), Schedule: jobs.Calendar("daily")},
		{Name: "c", Command: jobs.Shell("/bin/true")},
	})

	var verrs jobs.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "a", verrs[0].Job)
	assert.Contains(t, verrs[0].Message, `"weekly"`)
	assert.Equal(t, "c", verrs[1].Job)
}
