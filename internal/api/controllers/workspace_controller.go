package controllers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/workspace"
)

type WorkspaceRoleNameResponse struct {
	Role roles.RoleName `json:"role"`
}

func RegisterWorkspaceRoutes(r *router.Group, svc *services.Services) {
	r.POST("/workspaces", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		var body workspace.CreateWorkspaceRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}
		body.OwnerID = claims.UserID

		created, err := svc.Workspace.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Workspace created successfully", created)
	})

	r.GET("/workspaces", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		list, err := svc.Workspace.ListForUser(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Workspaces retrieved successfully", list)
	})

	r.GET("/workspaces/{slug}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.HasPerm(roles.ViewWorkspace), access.WorkspaceByID(ws.ID)) {
			return
		}

		writeOK(ctx, stdCtx, "Workspace retrieved successfully", ws)
	})

	// Relationship of the requester with the workspace: admin, member, guest or none
	r.GET("/workspaces/{slug}/role", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}

		name, err := svc.Workspace.GetUserRoleName(stdCtx, ws, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "success", WorkspaceRoleNameResponse{Role: name})
	})

	r.GET("/workspaces/{slug}/roles", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.WorkspaceAdmin(), access.WorkspaceByID(ws.ID)) {
			return
		}

		list, err := svc.Workspace.GetRoles(stdCtx, ws.ID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Roles retrieved successfully", list)
	})

	r.POST("/workspaces/{slug}/roles", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.WorkspaceAdmin(), access.WorkspaceByID(ws.ID)) {
			return
		}

		var body workspace.CreateRoleRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		role, err := svc.Workspace.CreateRole(stdCtx, ws, &body)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Role created successfully", role)
	})

	r.PUT("/workspaces/{slug}/roles/{role_slug}/permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.WorkspaceAdmin(), access.WorkspaceByID(ws.ID)) {
			return
		}

		roleSlug, _ := pathParam(ctx, "role_slug")
		role, err := svc.Workspace.GetRole(stdCtx, ws.ID, roleSlug)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		var body workspace.UpdatePermissionsRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		updated, err := svc.Workspace.UpdateRolePermissions(stdCtx, role, body.Permissions)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Role permissions updated successfully", updated)
	})

	r.GET("/workspaces/{slug}/memberships", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.HasPerm(roles.ViewWorkspace), access.WorkspaceByID(ws.ID)) {
			return
		}

		list, err := svc.Workspace.GetMemberships(stdCtx, ws.ID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Memberships retrieved successfully", list)
	})

	r.POST("/workspaces/{slug}/memberships", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.WorkspaceAdmin(), access.WorkspaceByID(ws.ID)) {
			return
		}

		var body workspace.CreateMembershipRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		if _, err := svc.User.GetByID(stdCtx, body.UserID); err != nil {
			writeError(ctx, stdCtx, err)
			return
		}
		role, err := svc.Workspace.GetRole(stdCtx, ws.ID, body.RoleSlug)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		m, err := svc.Workspace.CreateMembership(stdCtx, body.UserID, ws, role)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Membership created successfully", m)
	})

	// Projects of the workspace the requester can see
	r.GET("/workspaces/{slug}/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		ws, ok := loadWorkspace(ctx, stdCtx, svc)
		if !ok {
			return
		}
		if !authorize(ctx, stdCtx, svc, access.HasPerm(roles.ViewWorkspace), access.WorkspaceByID(ws.ID)) {
			return
		}

		subject := subjectFrom(ctx)
		list, err := svc.Project.ListVisibleByWorkspace(stdCtx, ws.ID, func(c context.Context, p *project.Project) (bool, error) {
			return svc.Access.CanViewProject(c, subject, access.ProjectByID(p.ID))
		})
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", list)
	})
}

func loadWorkspace(ctx *fasthttp.RequestCtx, stdCtx context.Context, svc *services.Services) (*workspace.Workspace, bool) {
	slug, _ := pathParam(ctx, "slug")
	ws, err := svc.Workspace.GetBySlug(stdCtx, slug)
	if err != nil {
		writeError(ctx, stdCtx, err)
		return nil, false
	}
	return ws, true
}
