package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "taskboard.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProject(t *testing.T, store *Store) (models.Workspace, models.Project) {
	t.Helper()
	ctx := context.Background()
	ws, err := store.CreateWorkspace(ctx, "Acme", "", "owner-1")
	require.NoError(t, err)
	project, err := store.CreateProject(ctx, models.Project{WorkspaceID: ws.ID, Name: "Launch"})
	require.NoError(t, err)
	return ws, project
}

func Test_Open_EmptyPath_ReturnsError(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)
}

func Test_CreateWorkspace_MembersAndOwner(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	ws, err := store.CreateWorkspace(ctx, "  Acme ", "team space", "owner-1")
	require.NoError(t, err)
	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, "Acme", ws.Name)
	assert.Equal(t, "owner-1", ws.OwnerID())
	assert.Empty(t, ws.Members)

	ws, err = store.AddMember(ctx, ws.ID, "u2", models.RoleEditor)
	require.NoError(t, err)
	ws, err = store.AddMember(ctx, ws.ID, "u3", models.RoleViewer)
	require.NoError(t, err)

	require.Len(t, ws.Members, 2)
	assert.Equal(t, "u2", ws.Members[0].Member.ID)
	assert.Equal(t, models.RoleEditor, ws.Members[0].Role)
	assert.Equal(t, "u3", ws.Members[1].Member.ID)

	_, err = store.GetWorkspace(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_CreateWorkspace_Validation(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CreateWorkspace(context.Background(), " ", "", "owner-1")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = store.CreateWorkspace(context.Background(), "Acme", "", "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func Test_AddMember_RejectsInvalidAndDuplicate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ws, err := store.CreateWorkspace(ctx, "Acme", "", "owner-1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		memberID string
		role     models.Role
		want     error
	}{
		{name: "owner role cannot be granted", memberID: "u2", role: models.RoleOwner, want: ErrInvalid},
		{name: "unknown role", memberID: "u2", role: "superuser", want: ErrInvalid},
		{name: "empty member", memberID: " ", role: models.RoleEditor, want: ErrInvalid},
		{name: "owner cannot join as member", memberID: "owner-1", role: models.RoleAdmin, want: ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddMember(ctx, ws.ID, tt.memberID, tt.role)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = store.AddMember(ctx, ws.ID, "u2", models.RoleEditor)
	require.NoError(t, err)
	_, err = store.AddMember(ctx, ws.ID, "u2", models.RoleViewer)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.AddMember(ctx, "missing", "u4", models.RoleViewer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_RemoveMember(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ws, err := store.CreateWorkspace(ctx, "Acme", "", "owner-1")
	require.NoError(t, err)
	_, err = store.AddMember(ctx, ws.ID, "u2", models.RoleEditor)
	require.NoError(t, err)

	require.NoError(t, store.RemoveMember(ctx, ws.ID, "u2"))
	ws, err = store.GetWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, ws.Members)

	assert.ErrorIs(t, store.RemoveMember(ctx, ws.ID, "u2"), ErrNotFound)
}

func Test_Projects_CRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ws, project := seedProject(t, store)

	assert.NotEmpty(t, project.Color)
	assert.Equal(t, ws.ID, project.WorkspaceID)

	_, err := store.CreateProject(ctx, models.Project{WorkspaceID: ws.ID, Name: "Launch"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.CreateProject(ctx, models.Project{WorkspaceID: ws.ID, Name: "  "})
	assert.ErrorIs(t, err, ErrInvalid)

	second, err := store.CreateProject(ctx, models.Project{WorkspaceID: ws.ID, Name: "Ops", Color: "#059669"})
	require.NoError(t, err)
	assert.Equal(t, "#059669", second.Color)

	projects, err := store.ListProjects(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Launch", projects[0].Name)
	assert.Equal(t, "Ops", projects[1].Name)

	updated, err := store.UpdateProject(ctx, second.ID, "", "runbooks", "")
	require.NoError(t, err)
	assert.Equal(t, "Ops", updated.Name)
	assert.Equal(t, "runbooks", updated.Description)
	assert.Equal(t, "#059669", updated.Color)

	require.NoError(t, store.DeleteProject(ctx, second.ID))
	assert.ErrorIs(t, store.DeleteProject(ctx, second.ID), ErrNotFound)
	_, err = store.UpdateProject(ctx, second.ID, "x", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_CreateTask_AppliesDefaults(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)

	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "  Write plan "})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write plan", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Nil(t, task.AssignedTo)
	assert.Nil(t, task.Deadline)
	assert.NotNil(t, task.CreatedAt)
	assert.NotNil(t, task.UpdatedAt)
}

func Test_CreateTask_Validation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)
	negative := -1.0

	tests := []struct {
		name string
		task models.Task
		want error
	}{
		{name: "empty title", task: models.Task{ProjectID: project.ID, Title: " "}, want: ErrInvalid},
		{name: "unknown status", task: models.Task{ProjectID: project.ID, Title: "a", Status: "BLOCKED"}, want: ErrInvalid},
		{name: "unknown priority", task: models.Task{ProjectID: project.ID, Title: "a", Priority: "CRITICAL"}, want: ErrInvalid},
		{name: "negative estimate", task: models.Task{ProjectID: project.ID, Title: "a", EstimatedTime: &negative}, want: ErrInvalid},
		{name: "missing project", task: models.Task{ProjectID: "missing", Title: "a"}, want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateTask(ctx, tt.task)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func Test_CreateTask_StoresCompletedAsDone(t *testing.T) {
	store := openTestStore(t)
	_, project := seedProject(t, store)

	task, err := store.CreateTask(context.Background(), models.Task{ProjectID: project.ID, Title: "a", Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, task.Status)
}

func Test_UpdateTask_PatchPreservesUnsetFields(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	estimate := 4.5
	task, err := store.CreateTask(ctx, models.Task{
		ProjectID:     project.ID,
		Title:         "Ship",
		Description:   "release notes",
		Priority:      models.PriorityHigh,
		AssignedTo:    models.Ref("u2"),
		Deadline:      &deadline,
		EstimatedTime: &estimate,
	})
	require.NoError(t, err)

	updated, err := store.UpdateTask(ctx, task.ID, models.StatusPatch(models.StatusInProgress))
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Ship", updated.Title)
	assert.Equal(t, "release notes", updated.Description)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, "u2", updated.AssigneeID())
	require.NotNil(t, updated.Deadline)
	assert.True(t, deadline.Equal(*updated.Deadline))
	require.NotNil(t, updated.EstimatedTime)
	assert.Equal(t, 4.5, *updated.EstimatedTime)
}

func Test_UpdateTask_ClearsAssigneeAndDeadline(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)

	deadline := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "a", AssignedTo: models.Ref("u2"), Deadline: &deadline})
	require.NoError(t, err)

	zero := time.Time{}
	updated, err := store.UpdateTask(ctx, task.ID, models.Patch{AssignedTo: &models.MemberRef{}, Deadline: &zero})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)
	assert.Nil(t, updated.Deadline)
}

func Test_UpdateTask_RejectsInvalidAndMissing(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)
	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "a"})
	require.NoError(t, err)

	_, err = store.UpdateTask(ctx, task.ID, models.StatusPatch("BLOCKED"))
	assert.ErrorIs(t, err, ErrInvalid)

	empty := ""
	_, err = store.UpdateTask(ctx, task.ID, models.Patch{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = store.UpdateTask(ctx, "missing", models.StatusPatch(models.StatusDone))
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_ListTasks_AndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)

	for _, title := range []string{"one", "two", "three"} {
		_, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: title})
		require.NoError(t, err)
	}

	tasks, err := store.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "one", tasks[0].Title)
	assert.Equal(t, "three", tasks[2].Title)

	require.NoError(t, store.DeleteTask(ctx, tasks[1].ID))
	assert.ErrorIs(t, store.DeleteTask(ctx, tasks[1].ID), ErrNotFound)
	_, err = store.GetTask(ctx, tasks[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tasks, err = store.ListTasks(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func Test_DeleteProject_CascadesTasks(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, project := seedProject(t, store)
	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "a"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteProject(ctx, project.ID))
	_, err = store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_WorkspaceLookups(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ws, project := seedProject(t, store)
	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "a"})
	require.NoError(t, err)

	got, err := store.WorkspaceForProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)

	got, err = store.WorkspaceForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, "owner-1", got.OwnerID())

	_, err = store.WorkspaceForProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.WorkspaceForTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
