package reconciler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todolst/internal/task"
)

func sampleTasks(n int) []task.Task {
	tasks := make([]task.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, task.Task{
			ID:   fmt.Sprintf("task-%d", i),
			Text: fmt.Sprintf("task number %d", i),
		})
	}
	return tasks
}

func taskIDs(tasks []task.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, tsk := range tasks {
		ids = append(ids, tsk.ID)
	}
	return ids
}

func TestReplaceAndTasks(t *testing.T) {
	store := NewStore()
	assert.Empty(t, store.Tasks())

	store.Replace(sampleTasks(3))
	assert.Equal(t, []string{"task-0", "task-1", "task-2"}, taskIDs(store.Tasks()))

	store.Replace(nil)
	assert.Empty(t, store.Tasks())
}

func TestTasksReturnsACopy(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(2))

	snapshot := store.Tasks()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "task number 0", store.Tasks()[0].Text)
}

func TestApplyCreatedPrepends(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(2))

	store.ApplyCreated(task.Task{ID: "fresh", Text: "just created"})

	assert.Equal(t, []string{"fresh", "task-0", "task-1"}, taskIDs(store.Tasks()))
}

func TestApplyUpdatedReplacesMatchingRecord(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(3))

	seq := store.NextSeq("task-1")
	applied := store.ApplyUpdated(seq, task.Task{ID: "task-1", Text: "edited", Completed: true})

	require.True(t, applied)
	got := store.Tasks()[1]
	assert.Equal(t, "edited", got.Text)
	assert.True(t, got.Completed)
}

func TestApplyUpdatedDiscardsStaleResponse(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(1))

	firstSeq := store.NextSeq("task-0")
	secondSeq := store.NextSeq("task-0")

	require.True(t, store.ApplyUpdated(secondSeq, task.Task{ID: "task-0", Text: "second edit"}))

	// The first request's response arrives after the second one was
	// already applied and must not win.
	require.False(t, store.ApplyUpdated(firstSeq, task.Task{ID: "task-0", Text: "first edit"}))

	assert.Equal(t, "second edit", store.Tasks()[0].Text)
}

func TestApplyUpdatedForUnknownTask(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(1))

	applied := store.ApplyUpdated(store.NextSeq("ghost"), task.Task{ID: "ghost"})

	assert.False(t, applied)
	assert.Equal(t, []string{"task-0"}, taskIDs(store.Tasks()))
}

func TestDeleteOptimisticAndConfirm(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(3))

	opID, ok := store.DeleteOptimistic("task-1")
	require.True(t, ok)
	require.NotEmpty(t, opID)
	assert.Equal(t, []string{"task-0", "task-2"}, taskIDs(store.Tasks()))
	assert.Equal(t, 1, store.PendingCount())

	store.Confirm(opID)
	assert.Equal(t, 0, store.PendingCount())

	// A confirmed operation can no longer be undone.
	assert.False(t, store.Undo(opID))
	assert.Equal(t, []string{"task-0", "task-2"}, taskIDs(store.Tasks()))
}

func TestDeleteOptimisticUnknownTask(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(1))

	opID, ok := store.DeleteOptimistic("ghost")

	assert.False(t, ok)
	assert.Empty(t, opID)
	assert.Equal(t, 0, store.PendingCount())
}

func TestUndoRestoresOriginalPosition(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(3))

	opID, ok := store.DeleteOptimistic("task-1")
	require.True(t, ok)

	require.True(t, store.Undo(opID))
	assert.Equal(t, []string{"task-0", "task-1", "task-2"}, taskIDs(store.Tasks()))
	assert.Equal(t, 0, store.PendingCount())

	// Compensation is one-shot.
	assert.False(t, store.Undo(opID))
	assert.Equal(t, []string{"task-0", "task-1", "task-2"}, taskIDs(store.Tasks()))
}

func TestFailReinsertsAfterServerRejection(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(2))

	opID, ok := store.DeleteOptimistic("task-0")
	require.True(t, ok)

	require.True(t, store.Fail(opID))
	assert.Equal(t, []string{"task-0", "task-1"}, taskIDs(store.Tasks()))
}

func TestCompensateClampsIndexAfterListShrank(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(3))

	opID, ok := store.DeleteOptimistic("task-2")
	require.True(t, ok)

	// The list shrinks below the remembered position before the undo.
	store.Replace(sampleTasks(1))
	opID2, ok := store.DeleteOptimistic("task-0")
	require.True(t, ok)
	store.Confirm(opID2)

	// Replace dropped the first pending operation, so there is nothing
	// left to undo.
	assert.False(t, store.Undo(opID))
}

func TestUndoAfterListShrank(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(3))

	lastOpID, ok := store.DeleteOptimistic("task-2")
	require.True(t, ok)
	firstOpID, ok := store.DeleteOptimistic("task-0")
	require.True(t, ok)
	store.Confirm(firstOpID)

	// task-2 was remembered at index 2 but only one task remains, so the
	// restore appends at the end instead of panicking.
	require.True(t, store.Undo(lastOpID))
	assert.Equal(t, []string{"task-1", "task-2"}, taskIDs(store.Tasks()))
}

func TestConcurrentUse(t *testing.T) {
	store := NewStore()
	store.Replace(sampleTasks(10))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			taskID := fmt.Sprintf("task-%d", i)
			seq := store.NextSeq(taskID)
			store.ApplyUpdated(seq, task.Task{ID: taskID, Text: "edited", Completed: true})
			if opID, ok := store.DeleteOptimistic(taskID); ok {
				store.Undo(opID)
			}
		}(i)
	}
	wg.Wait()

	tasks := store.Tasks()
	require.Len(t, tasks, 10)
	for _, tsk := range tasks {
		assert.True(t, tsk.Completed)
	}
	assert.Equal(t, 0, store.PendingCount())
}
