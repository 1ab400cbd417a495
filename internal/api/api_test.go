package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/api"
	"github.com/taigaio/taiga/internal/api/controllers"
	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
	"github.com/taigaio/taiga/internal/testutil"
)

type envelope[T any] struct {
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	Status       int    `json:"status"`
	Data         T      `json:"data"`
	ErrorDetails struct {
		Code struct {
			Code string `json:"code"`
		} `json:"code"`
	} `json:"errorDetails"`
}

type request struct {
	method   string
	uri      string
	token    string
	language string
	body     any
}

type harness struct {
	t       *testing.T
	ts      *testutil.Services
	handler fasthttp.RequestHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ts := testutil.NewServices()
	svc := &services.Services{
		User:       ts.User,
		Workspace:  ts.Workspace,
		Project:    ts.Project,
		Invitation: ts.Invitation,
		Story:      ts.Story,
		Access:     ts.Access,
	}

	srv, err := api.New(&config.Config{
		SERVER_ADDR:     "127.0.0.1:0",
		ALLOWED_HEADERS: "Content-Type,Authorization",
		JWT_SECRET:      "test-secret",
		JWT_TTL:         time.Hour,
		LANG:            "en-US",
	}, svc)
	require.NoError(t, err)

	return &harness{t: t, ts: ts, handler: srv.Handler()}
}

func (h *harness) do(req request) *fasthttp.Response {
	h.t.Helper()
	var r fasthttp.Request
	r.Header.SetMethod(req.method)
	r.SetRequestURI(req.uri)
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.language != "" {
		r.Header.Set("Accept-Language", req.language)
	}
	if req.body != nil {
		b, err := sonic.Marshal(req.body)
		require.NoError(h.t, err)
		r.Header.SetContentType("application/json")
		r.SetBody(b)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&r, nil, nil)
	h.handler(&ctx)

	resp := &fasthttp.Response{}
	ctx.Response.CopyTo(resp)
	return resp
}

func decode[T any](t *testing.T, resp *fasthttp.Response) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, sonic.Unmarshal(resp.Body(), &env), string(resp.Body()))
	return env
}

func (h *harness) login(u *user.User) string {
	h.t.Helper()
	resp := h.do(request{method: "POST", uri: "/api/v2/auth/token", body: map[string]string{
		"username": u.Username,
		"password": "123123",
	}})
	require.Equal(h.t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	env := decode[struct {
		Token string `json:"token"`
	}](h.t, resp)
	require.NotEmpty(h.t, env.Data.Token)
	return env.Data.Token
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp := h.do(request{method: "GET", uri: "/api/health"})
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "OK", string(resp.Body()))
}

func TestPreflight(t *testing.T) {
	h := newHarness(t)
	resp := h.do(request{method: "OPTIONS", uri: "/api/v2/projects/anything"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "Content-Type,Authorization", string(resp.Header.Peek("Access-Control-Allow-Headers")))
}

func TestTokenAndMe(t *testing.T) {
	h := newHarness(t)
	alice := h.ts.CreateUser(t, "alice")

	token := h.login(alice)
	resp := h.do(request{method: "GET", uri: "/api/v2/auth/me", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	me := decode[user.User](t, resp)
	assert.Equal(t, alice.ID, me.Data.ID)
	assert.Equal(t, "alice", me.Data.Username)

	t.Run("by email", func(t *testing.T) {
		resp := h.do(request{method: "POST", uri: "/api/v2/auth/token", body: map[string]string{
			"username": alice.Email,
			"password": "123123",
		}})
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := h.do(request{method: "POST", uri: "/api/v2/auth/token", body: map[string]string{
			"username": "alice",
			"password": "nope",
		}})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
		env := decode[any](t, resp)
		assert.True(t, env.Error)
		assert.Equal(t, "unauthorized", env.ErrorDetails.Code.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := h.do(request{method: "GET", uri: "/api/v2/auth/me"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})

	t.Run("bad token", func(t *testing.T) {
		resp := h.do(request{method: "GET", uri: "/api/health", token: "not-a-token"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}

func TestSignup(t *testing.T) {
	h := newHarness(t)

	body := map[string]any{
		"username":  "bob",
		"email":     "bob@taiga.demo",
		"full_name": "Bob",
		"password":  "123123",
	}
	resp := h.do(request{method: "POST", uri: "/api/v2/users", body: body})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	created := decode[user.User](t, resp)
	assert.Equal(t, "bob", created.Data.Username)
	assert.NotContains(t, string(resp.Body()), "password_hash")

	resp = h.do(request{method: "POST", uri: "/api/v2/users", body: body})
	assert.Equal(t, http.StatusConflict, resp.StatusCode())
}

func TestValidationMessagesAreTranslated(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"username": "carol", "full_name": "Carol", "password": "123123"}

	resp := h.do(request{method: "POST", uri: "/api/v2/users", body: body})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode())
	assert.Equal(t, "Field email is not valid", decode[any](t, resp).Message)

	resp = h.do(request{method: "POST", uri: "/api/v2/users", body: body, language: "es-ES,es;q=0.9"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode())
	assert.Equal(t, "El campo email no es válido", decode[any](t, resp).Message)
	assert.Equal(t, "es-ES", string(resp.Header.Peek("Content-Language")))

	resp = h.do(request{method: "POST", uri: "/api/v2/users"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

type projectFixture struct {
	owner, member, outsider *user.User
	ws                      *workspace.Workspace
	pj                      *project.Project
}

func newProjectFixture(t *testing.T, h *harness) projectFixture {
	t.Helper()
	f := projectFixture{
		owner:    h.ts.CreateUser(t, "owner"),
		member:   h.ts.CreateUser(t, "member"),
		outsider: h.ts.CreateUser(t, "outsider"),
	}
	f.ws = h.ts.CreateWorkspace(t, "Acme", f.owner, true)
	h.ts.AddWorkspaceMember(t, f.ws, f.member, roles.MembersRoleSlug)
	f.pj = h.ts.CreateProject(t, "Rocket", f.ws, f.owner)
	return f
}

func TestGetProjectFollowsTiers(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	memberToken := h.login(f.member)
	outsiderToken := h.login(f.outsider)
	uri := "/api/v2/projects/" + f.pj.Slug

	assert.Equal(t, http.StatusOK, h.do(request{method: "GET", uri: uri, token: ownerToken}).StatusCode())
	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri, token: memberToken}).StatusCode())
	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri}).StatusCode())
	assert.Equal(t, http.StatusNotFound, h.do(request{method: "GET", uri: "/api/v2/projects/missing", token: ownerToken}).StatusCode())

	resp := h.do(request{method: "PUT", uri: uri + "/workspace-member-permissions", token: ownerToken, body: map[string]any{
		"permissions": []string{roles.ViewStory},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))

	assert.Equal(t, http.StatusOK, h.do(request{method: "GET", uri: uri, token: memberToken}).StatusCode())
	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri, token: outsiderToken}).StatusCode())

	resp = h.do(request{method: "PUT", uri: uri + "/public-permissions", token: memberToken, body: map[string]any{
		"permissions": []string{roles.ViewStory},
	}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp = h.do(request{method: "PUT", uri: uri + "/public-permissions", token: ownerToken, body: map[string]any{
		"permissions": []string{roles.ViewStory, roles.ViewTask},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, http.StatusOK, h.do(request{method: "GET", uri: uri}).StatusCode())

	resp = h.do(request{method: "GET", uri: uri + "/my-permissions"})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	mine := decode[struct {
		IsAdmin     bool     `json:"is_admin"`
		Permissions []string `json:"permissions"`
	}](t, resp)
	assert.False(t, mine.Data.IsAdmin)
	assert.ElementsMatch(t, []string{roles.ViewStory, roles.ViewTask}, mine.Data.Permissions)
}

func TestProjectMembershipIsAuthoritative(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	memberToken := h.login(f.member)
	uri := "/api/v2/projects/" + f.pj.Slug

	h.ts.SetRolePermissions(t, f.pj, roles.GeneralRoleSlug)
	h.ts.AddProjectMember(t, f.pj, f.member, roles.GeneralRoleSlug)

	resp := h.do(request{method: "PUT", uri: uri + "/workspace-member-permissions", token: ownerToken, body: map[string]any{
		"permissions": []string{roles.ViewStory},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode())

	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri, token: memberToken}).StatusCode())
}

func TestUpdateProjectRolePermissions(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	memberToken := h.login(f.member)
	uri := "/api/v2/projects/" + f.pj.Slug + "/roles"

	resp := h.do(request{method: "GET", uri: uri, token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	list := decode[[]struct {
		Slug       string `json:"slug"`
		NumMembers int    `json:"num_members"`
	}](t, resp)
	require.Len(t, list.Data, 2)
	assert.Equal(t, roles.AdminRoleSlug, list.Data[0].Slug)
	assert.Equal(t, 1, list.Data[0].NumMembers)

	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri, token: memberToken}).StatusCode())

	cases := []struct {
		name   string
		role   string
		token  string
		perms  []string
		status int
	}{
		{"admin role", roles.AdminRoleSlug, ownerToken, []string{roles.ViewStory}, http.StatusForbidden},
		{"write without view", roles.GeneralRoleSlug, ownerToken, []string{roles.AddStory}, http.StatusBadRequest},
		{"unknown permission", roles.GeneralRoleSlug, ownerToken, []string{"fly"}, http.StatusBadRequest},
		{"missing role", "ghost", ownerToken, []string{roles.ViewStory}, http.StatusNotFound},
		{"not an admin", roles.GeneralRoleSlug, memberToken, []string{roles.ViewStory}, http.StatusForbidden},
		{"valid", roles.GeneralRoleSlug, ownerToken, []string{roles.ViewStory, roles.CommentStory}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.do(request{method: "PUT", uri: uri + "/" + tc.role + "/permissions", token: tc.token, body: map[string]any{
				"permissions": tc.perms,
			}})
			assert.Equal(t, tc.status, resp.StatusCode(), string(resp.Body()))
		})
	}

	role, err := h.ts.Project.GetRole(context.Background(), f.pj.ID, roles.GeneralRoleSlug)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{roles.ViewStory, roles.CommentStory}, []string(role.Permissions))
}

func TestCreateProjectRoleNamedLikeBuiltinRole(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	uri := "/api/v2/projects/" + f.pj.Slug + "/roles"

	create := func(name string) string {
		resp := h.do(request{method: "POST", uri: uri, token: ownerToken, body: map[string]any{
			"name":        name,
			"permissions": []string{roles.ViewStory},
		}})
		require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
		return decode[struct {
			Slug string `json:"slug"`
		}](t, resp).Data.Slug
	}

	assert.Equal(t, "admin-2", create("Admin"))
	assert.Equal(t, "qa", create("QA"))
	assert.Equal(t, "qa-2", create("QA"))

	// The new role is an ordinary one and stays editable
	resp := h.do(request{method: "PUT", uri: uri + "/admin-2/permissions", token: ownerToken, body: map[string]any{
		"permissions": []string{roles.ViewStory, roles.ViewTask},
	}})
	assert.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
}

func TestNonEditableRoleMessage(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)

	resp := h.do(request{
		method:   "PUT",
		uri:      "/api/v2/projects/" + f.pj.Slug + "/roles/admin/permissions",
		token:    ownerToken,
		language: "es-ES",
		body:     map[string]any{"permissions": []string{roles.ViewStory}},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.Equal(t, "Los permisos del rol de administración no se pueden editar", decode[any](t, resp).Message)
}

func TestCreateAndListProjects(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	memberToken := h.login(f.member)
	outsiderToken := h.login(f.outsider)

	resp := h.do(request{method: "POST", uri: "/api/v2/projects", token: memberToken, body: map[string]any{
		"workspace_slug": f.ws.Slug,
		"name":           "Member project",
		"color":          3,
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	created := decode[project.Project](t, resp)
	assert.Equal(t, f.member.ID, created.Data.OwnerID)

	resp = h.do(request{method: "POST", uri: "/api/v2/projects", token: outsiderToken, body: map[string]any{
		"workspace_slug": f.ws.Slug,
		"name":           "Intruder",
		"color":          3,
	}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp = h.do(request{method: "POST", uri: "/api/v2/projects", body: map[string]any{
		"workspace_slug": f.ws.Slug,
		"name":           "Anonymous",
		"color":          3,
	}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	// the member sees its own project but not the owner's one
	resp = h.do(request{method: "GET", uri: "/api/v2/workspaces/" + f.ws.Slug + "/projects", token: memberToken})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	list := decode[[]project.Project](t, resp)
	require.Len(t, list.Data, 1)
	assert.Equal(t, created.Data.ID, list.Data[0].ID)

	resp = h.do(request{method: "GET", uri: "/api/v2/workspaces/" + f.ws.Slug + "/projects", token: outsiderToken})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestWorkspaceRoutes(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	memberToken := h.login(f.member)
	outsiderToken := h.login(f.outsider)
	uri := "/api/v2/workspaces/" + f.ws.Slug

	roleName := func(token string) roles.RoleName {
		resp := h.do(request{method: "GET", uri: uri + "/role", token: token})
		require.Equal(t, http.StatusOK, resp.StatusCode())
		return decode[controllers.WorkspaceRoleNameResponse](t, resp).Data.Role
	}
	assert.Equal(t, roles.RoleNameAdmin, roleName(ownerToken))
	assert.Equal(t, roles.RoleNameMember, roleName(memberToken))
	assert.Equal(t, roles.RoleNameNone, roleName(outsiderToken))

	assert.Equal(t, http.StatusOK, h.do(request{method: "GET", uri: uri, token: memberToken}).StatusCode())
	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri, token: outsiderToken}).StatusCode())
	assert.Equal(t, http.StatusNotFound, h.do(request{method: "GET", uri: "/api/v2/workspaces/nope", token: ownerToken}).StatusCode())

	assert.Equal(t, http.StatusForbidden, h.do(request{method: "GET", uri: uri + "/roles", token: memberToken}).StatusCode())
	resp := h.do(request{method: "GET", uri: uri + "/roles", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, decode[[]workspace.WorkspaceRole](t, resp).Data, 2)

	membership := map[string]any{"user_id": f.outsider.ID.String(), "role_slug": roles.MembersRoleSlug}
	resp = h.do(request{method: "POST", uri: uri + "/memberships", token: memberToken, body: membership})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	resp = h.do(request{method: "POST", uri: uri + "/memberships", token: ownerToken, body: membership})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	resp = h.do(request{method: "POST", uri: uri + "/memberships", token: ownerToken, body: membership})
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	assert.Equal(t, roles.RoleNameMember, roleName(outsiderToken))
}

func TestCreateWorkspace(t *testing.T) {
	h := newHarness(t)
	alice := h.ts.CreateUser(t, "alice")
	token := h.login(alice)

	resp := h.do(request{method: "POST", uri: "/api/v2/workspaces", token: token, body: map[string]any{"name": "Mine", "color": 2}})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	ws := decode[workspace.Workspace](t, resp)
	assert.Equal(t, alice.ID, ws.Data.OwnerID)

	resp = h.do(request{method: "POST", uri: "/api/v2/workspaces/" + ws.Data.Slug + "/roles", token: token, body: map[string]any{
		"name":        "Viewers",
		"permissions": []string{roles.ViewWorkspace},
	}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp = h.do(request{method: "GET", uri: "/api/v2/workspaces", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, decode[[]workspace.Workspace](t, resp).Data, 1)
}

func TestInvitationFlow(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	outsiderToken := h.login(f.outsider)
	uri := "/api/v2/projects/" + f.pj.Slug

	resp := h.do(request{method: "POST", uri: uri + "/invitations", token: outsiderToken, body: map[string]any{
		"email":     f.outsider.Email,
		"role_slug": roles.GeneralRoleSlug,
	}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp = h.do(request{method: "POST", uri: uri + "/invitations", token: ownerToken, body: map[string]any{
		"email":     f.outsider.Email,
		"role_slug": roles.GeneralRoleSlug,
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	inv := decode[invitation.ProjectInvitation](t, resp).Data
	assert.Equal(t, invitation.StatusPending, inv.Status)

	resp = h.do(request{method: "GET", uri: uri + "/invitations?status=pending", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, decode[[]invitation.ProjectInvitation](t, resp).Data, 1)

	acceptURI := "/api/v2/invitations/" + inv.ID.String() + "/accept"
	assert.Equal(t, http.StatusUnauthorized, h.do(request{method: "POST", uri: acceptURI}).StatusCode())
	assert.Equal(t, http.StatusForbidden, h.do(request{method: "POST", uri: acceptURI, token: ownerToken}).StatusCode())

	resp = h.do(request{method: "POST", uri: acceptURI, token: outsiderToken})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	assert.Equal(t, invitation.StatusAccepted, decode[invitation.ProjectInvitation](t, resp).Data.Status)

	resp = h.do(request{method: "POST", uri: acceptURI, token: outsiderToken})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	assert.Equal(t, http.StatusOK, h.do(request{method: "GET", uri: uri, token: outsiderToken}).StatusCode())

	resp = h.do(request{method: "POST", uri: uri + "/invitations/" + inv.ID.String() + "/revoke", token: ownerToken})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestRevokeInvitation(t *testing.T) {
	h := newHarness(t)
	f := newProjectFixture(t, h)
	ownerToken := h.login(f.owner)
	uri := "/api/v2/projects/" + f.pj.Slug

	resp := h.do(request{method: "POST", uri: uri + "/invitations", token: ownerToken, body: map[string]any{
		"email":     "someone@example.com",
		"role_slug": roles.GeneralRoleSlug,
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	inv := decode[invitation.ProjectInvitation](t, resp).Data

	resp = h.do(request{method: "POST", uri: uri + "/invitations/" + inv.ID.String() + "/revoke", token: ownerToken})
	require.Equal(t, http.StatusOK, resp.StatusCode(), string(resp.Body()))
	assert.Equal(t, invitation.StatusRevoked, decode[invitation.ProjectInvitation](t, resp).Data.Status)

	resp = h.do(request{method: "GET", uri: uri + "/invitations?status=bogus", token: ownerToken})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode())
}
