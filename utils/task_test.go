package utils_test

import (
	"sync/atomic"
	"testing"
	"time"

	testutils "github.com/drpcorg/swarmdb/test_utils"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/stretchr/testify/assert"
)

func TestTask_Coalesces(t *testing.T) {
	sched := &testutils.ManualScheduler{}
	runs := 0
	task := utils.NewTask(sched, 0, func() { runs++ })
	for i := 0; i < 10; i++ {
		task.Schedule()
	}
	assert.True(t, task.Pending())
	assert.Equal(t, 1, sched.Pending())
	assert.Equal(t, 1, sched.Flush())
	assert.Equal(t, 1, runs)
	assert.False(t, task.Pending())

	assert.Equal(t, 0, sched.Flush())
	assert.Equal(t, 1, runs)
}

func TestTask_Cancel(t *testing.T) {
	sched := &testutils.ManualScheduler{}
	runs := 0
	task := utils.NewTask(sched, 0, func() { runs++ })
	task.Schedule()
	task.Cancel()
	assert.Equal(t, 0, sched.Flush())
	assert.Equal(t, 0, runs)

	task.Schedule()
	assert.Equal(t, 1, sched.Flush())
	assert.Equal(t, 1, runs)
}

func TestTask_WallClock(t *testing.T) {
	var runs atomic.Int32
	task := utils.NewTask(nil, 10*time.Millisecond, func() { runs.Add(1) })
	for i := 0; i < 5; i++ {
		task.Schedule()
	}
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, runs.Load())
}

func TestTask_RunsDoNotOverlap(t *testing.T) {
	var runs, inside, most atomic.Int32
	started := make(chan struct{}, 4)
	task := utils.NewTask(utils.WallScheduler, 0, func() {
		n := inside.Add(1)
		if n > most.Load() {
			most.Store(n)
		}
		started <- struct{}{}
		time.Sleep(30 * time.Millisecond)
		runs.Add(1)
		inside.Add(-1)
	})
	task.Schedule()
	<-started
	task.Schedule()
	task.Schedule()
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, runs.Load())
	assert.EqualValues(t, 1, most.Load())
}

func TestTask_CancelDropsRerun(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	task := utils.NewTask(utils.WallScheduler, 0, func() {
		started <- struct{}{}
		<-release
		runs.Add(1)
	})
	task.Schedule()
	<-started
	task.Schedule()
	assert.Eventually(t, task.Pending, time.Second, time.Millisecond)
	task.Cancel()
	close(release)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, runs.Load())
	assert.False(t, task.Pending())
}

func TestSortedKeys(t *testing.T) {
	set := map[string]struct{}{"b": {}, "a": {}, "c": {}}
	assert.Equal(t, []string{"a", "b", "c"}, utils.SortedKeys(set))
	assert.Empty(t, utils.SortedKeys(map[int]bool{}))
}
