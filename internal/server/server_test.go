package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
	"taskboard/internal/view"
)

// fixture is a workspace owned by "owner" with one member per non-owner
// role, a project and one task.
type fixture struct {
	router      http.Handler
	workspaceID string
	projectID   string
	taskID      string
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "taskboard.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, nil, Options{}).Engine()
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{router: newTestServer(t)}

	var created struct {
		Workspace models.Workspace `json:"workspace"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodPost, "/api/workspaces", "owner",
		jsonObj{"name": "Acme"}, http.StatusCreated, &created)
	f.workspaceID = created.Workspace.ID

	for member, role := range map[string]models.Role{"admin": models.RoleAdmin, "editor": models.RoleEditor, "viewer": models.RoleViewer} {
		makeRequest(t, f.router, http.MethodPost, "/api/workspaces/"+f.workspaceID+"/members", "owner",
			jsonObj{"member": member, "role": role}, http.StatusCreated)
	}

	var project struct {
		Project models.Project `json:"project"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodPost, "/api/workspaces/"+f.workspaceID+"/projects", "owner",
		jsonObj{"name": "Launch"}, http.StatusCreated, &project)
	f.projectID = project.Project.ID

	var task struct {
		Task models.Task `json:"task"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodPost, "/api/projects/"+f.projectID+"/tasks", "owner",
		jsonObj{"title": "Write plan"}, http.StatusCreated, &task)
	f.taskID = task.Task.ID
	return f
}

type jsonObj = map[string]any

func makeRequest(t *testing.T, router http.Handler, method, path, member string, body any, expectedStatus int) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if member != "" {
		req.Header.Set(MemberHeader, member)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, expectedStatus, rec.Code, rec.Body.String())
	return rec
}

func makeRequestAndUnmarshal(t *testing.T, router http.Handler, method, path, member string, body any, expectedStatus int, out any) {
	t.Helper()
	rec := makeRequest(t, router, method, path, member, body, expectedStatus)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func Test_Health_ReturnsOK(t *testing.T) {
	router := newTestServer(t)
	rec := makeRequest(t, router, http.MethodGet, "/api/healthz", "", nil, http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func Test_UnknownAPIRoute_ReturnsJSONNotFound(t *testing.T) {
	router := newTestServer(t)
	rec := makeRequest(t, router, http.MethodGet, "/api/nothing", "owner", nil, http.StatusNotFound)
	assert.Contains(t, rec.Body.String(), "endpoint not found")
}

func Test_GetWorkspace_ReturnsCallerRole(t *testing.T) {
	f := newFixture(t)

	var resp struct {
		Workspace    models.Workspace `json:"workspace"`
		Role         models.Role      `json:"role"`
		Capabilities []string         `json:"capabilities"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodGet, "/api/workspaces/"+f.workspaceID, "viewer", nil, http.StatusOK, &resp)

	assert.Equal(t, models.RoleViewer, resp.Role)
	assert.Equal(t, []string{"view"}, resp.Capabilities)
	assert.Equal(t, "owner", resp.Workspace.OwnerID())
	assert.Len(t, resp.Workspace.Members, 3)

	makeRequest(t, f.router, http.MethodGet, "/api/workspaces/"+f.workspaceID, "stranger", nil, http.StatusForbidden)
	makeRequest(t, f.router, http.MethodGet, "/api/workspaces/"+f.workspaceID, "", nil, http.StatusForbidden)
	makeRequest(t, f.router, http.MethodGet, "/api/workspaces/missing", "owner", nil, http.StatusNotFound)
}

func Test_CreateWorkspace_RequiresMember(t *testing.T) {
	router := newTestServer(t)
	makeRequest(t, router, http.MethodPost, "/api/workspaces", "", jsonObj{"name": "Acme"}, http.StatusBadRequest)
	makeRequest(t, router, http.MethodPost, "/api/workspaces", "owner", jsonObj{"name": ""}, http.StatusBadRequest)
}

func Test_Routes_EnforceCapabilityTable(t *testing.T) {
	type route struct {
		name   string
		method string
		path   func(f fixture) string
		body   any
		// allowed is the status returned when the capability is granted.
		allowed int
	}

	routes := []route{
		{"list projects", http.MethodGet, func(f fixture) string { return "/api/workspaces/" + f.workspaceID + "/projects" }, nil, http.StatusOK},
		{"list tasks", http.MethodGet, func(f fixture) string { return "/api/projects/" + f.projectID + "/tasks" }, nil, http.StatusOK},
		{"board", http.MethodGet, func(f fixture) string { return "/api/projects/" + f.projectID + "/board" }, nil, http.StatusOK},
		{"create project", http.MethodPost, func(f fixture) string { return "/api/workspaces/" + f.workspaceID + "/projects" }, jsonObj{"name": "Ops"}, http.StatusCreated},
		{"create task", http.MethodPost, func(f fixture) string { return "/api/projects/" + f.projectID + "/tasks" }, jsonObj{"title": "x"}, http.StatusCreated},
		{"update task", http.MethodPut, func(f fixture) string { return "/api/tasks/" + f.taskID }, jsonObj{"status": "DONE"}, http.StatusOK},
		{"update project", http.MethodPut, func(f fixture) string { return "/api/projects/" + f.projectID }, jsonObj{"color": "#dc2626"}, http.StatusOK},
		{"invite member", http.MethodPost, func(f fixture) string { return "/api/workspaces/" + f.workspaceID + "/members" }, jsonObj{"member": "newcomer", "role": "viewer"}, http.StatusCreated},
		{"delete task", http.MethodDelete, func(f fixture) string { return "/api/tasks/" + f.taskID }, nil, http.StatusOK},
		{"delete project", http.MethodDelete, func(f fixture) string { return "/api/projects/" + f.projectID }, nil, http.StatusOK},
		{"remove member", http.MethodDelete, func(f fixture) string { return "/api/workspaces/" + f.workspaceID + "/members/viewer" }, nil, http.StatusOK},
	}

	granted := map[string]map[string]bool{
		"owner":    {"list projects": true, "list tasks": true, "board": true, "create project": true, "create task": true, "update task": true, "update project": true, "invite member": true, "delete task": true, "delete project": true, "remove member": true},
		"admin":    {"list projects": true, "list tasks": true, "board": true, "create project": true, "create task": true, "update task": true, "update project": true, "invite member": true},
		"editor":   {"list projects": true, "list tasks": true, "board": true, "create project": true, "create task": true, "update task": true, "update project": true, "invite member": true},
		"viewer":   {"list projects": true, "list tasks": true, "board": true},
		"stranger": {},
	}

	for member, allowed := range granted {
		for _, r := range routes {
			t.Run(member+"/"+r.name, func(t *testing.T) {
				f := newFixture(t)
				expected := http.StatusForbidden
				if allowed[r.name] {
					expected = r.allowed
				}
				makeRequest(t, f.router, r.method, r.path(f), member, r.body, expected)
			})
		}
	}
}

func Test_AddMember_RejectsDuplicateAndOwnerRole(t *testing.T) {
	f := newFixture(t)
	path := "/api/workspaces/" + f.workspaceID + "/members"

	makeRequest(t, f.router, http.MethodPost, path, "owner", jsonObj{"member": "editor", "role": "viewer"}, http.StatusConflict)
	makeRequest(t, f.router, http.MethodPost, path, "owner", jsonObj{"member": "someone", "role": "owner"}, http.StatusBadRequest)

	var resp struct {
		Workspace models.Workspace `json:"workspace"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodPost, path, "admin",
		jsonObj{"member": jsonObj{"_id": "populated", "name": "Pat"}, "role": "editor"}, http.StatusCreated, &resp)
	assert.Equal(t, "populated", resp.Workspace.Members[len(resp.Workspace.Members)-1].Member.ID)
}

func Test_CreateTask_ValidatesAssignee(t *testing.T) {
	f := newFixture(t)
	path := "/api/projects/" + f.projectID + "/tasks"

	makeRequest(t, f.router, http.MethodPost, path, "editor", jsonObj{"title": "x", "assigned_to": "stranger"}, http.StatusBadRequest)

	var resp struct {
		Task models.Task `json:"task"`
	}
	rec := makeRequest(t, f.router, http.MethodPost, path, "editor",
		jsonObj{"title": "x", "assigned_to": jsonObj{"_id": "viewer"}, "priority": "URGENT"}, http.StatusCreated)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "viewer", resp.Task.AssigneeID())
	assert.Equal(t, models.PriorityUrgent, resp.Task.Priority)
	assert.Equal(t, models.StatusTodo, resp.Task.Status)
	assert.Contains(t, rec.Body.String(), `"assigned_to":"viewer"`)

	makeRequest(t, f.router, http.MethodPost, "/api/projects/missing/tasks", "owner", jsonObj{"title": "x"}, http.StatusNotFound)
	makeRequest(t, f.router, http.MethodPost, path, "owner", jsonObj{"title": " "}, http.StatusBadRequest)
}

func Test_UpdateTask_PatchSemantics(t *testing.T) {
	f := newFixture(t)
	path := "/api/tasks/" + f.taskID

	var resp struct {
		Task models.Task `json:"task"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodPut, path, "editor",
		jsonObj{"status": "COMPLETED", "assigned_to": "admin"}, http.StatusOK, &resp)
	assert.Equal(t, models.StatusDone, resp.Task.Status)
	assert.Equal(t, "admin", resp.Task.AssigneeID())
	assert.Equal(t, "Write plan", resp.Task.Title)

	makeRequestAndUnmarshal(t, f.router, http.MethodPut, path, "editor",
		jsonObj{"assigned_to": "", "title": "Write the plan"}, http.StatusOK, &resp)
	assert.Equal(t, "Write the plan", resp.Task.Title)
	assert.Nil(t, resp.Task.AssignedTo)
	assert.Equal(t, models.StatusDone, resp.Task.Status)

	makeRequest(t, f.router, http.MethodPut, path, "editor", jsonObj{}, http.StatusBadRequest)
	makeRequest(t, f.router, http.MethodPut, path, "editor", jsonObj{"status": "BLOCKED"}, http.StatusBadRequest)
	makeRequest(t, f.router, http.MethodPut, path, "editor", jsonObj{"assigned_to": "stranger"}, http.StatusBadRequest)
	makeRequest(t, f.router, http.MethodPut, "/api/tasks/missing", "owner", jsonObj{"status": "DONE"}, http.StatusNotFound)
}

func Test_ListTasks_AppliesQueryParameters(t *testing.T) {
	f := newFixture(t)
	path := "/api/projects/" + f.projectID + "/tasks"

	for _, body := range []jsonObj{
		{"title": "Low done", "priority": "LOW", "status": "DONE"},
		{"title": "Urgent done", "priority": "URGENT", "status": "COMPLETED"},
		{"title": "Review", "priority": "HIGH", "status": "REVIEW"},
	} {
		makeRequest(t, f.router, http.MethodPost, path, "owner", body, http.StatusCreated)
	}

	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodGet, path+"?status=DONE&sort=priority", "viewer", nil, http.StatusOK, &resp)
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "Urgent done", resp.Tasks[0].Title)
	assert.Equal(t, "Low done", resp.Tasks[1].Title)

	makeRequestAndUnmarshal(t, f.router, http.MethodGet, path+"?q=REVIEW", "viewer", nil, http.StatusOK, &resp)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "Review", resp.Tasks[0].Title)
}

func Test_Board_ReturnsProjections(t *testing.T) {
	f := newFixture(t)
	path := "/api/projects/" + f.projectID + "/tasks"

	makeRequest(t, f.router, http.MethodPost, path, "owner", jsonObj{"title": "a", "assigned_to": "editor", "status": "DONE"}, http.StatusCreated)
	makeRequest(t, f.router, http.MethodPost, path, "owner", jsonObj{"title": "b", "assigned_to": "editor"}, http.StatusCreated)

	var resp struct {
		Board view.Board `json:"board"`
	}
	makeRequestAndUnmarshal(t, f.router, http.MethodGet, "/api/projects/"+f.projectID+"/board?hide_empty=true", "viewer", nil, http.StatusOK, &resp)

	assert.Len(t, resp.Board.List, 3)
	require.Len(t, resp.Board.Kanban, 4)
	assert.Equal(t, models.StatusTodo, resp.Board.Kanban[0].Status)
	assert.Equal(t, 2, resp.Board.Kanban[0].Count)
	assert.Equal(t, 1, resp.Board.Kanban[3].Count)

	require.Len(t, resp.Board.Assignees, 2)
	assert.Equal(t, "editor", resp.Board.Assignees[0].Member.ID)
	assert.Equal(t, 50, resp.Board.Assignees[0].CompletionRate)
	assert.Nil(t, resp.Board.Assignees[1].Member)
	assert.Equal(t, view.UnassignedLabel, resp.Board.Assignees[1].Label)
	assert.Equal(t, 1, resp.Board.Assignees[1].Total)
}
