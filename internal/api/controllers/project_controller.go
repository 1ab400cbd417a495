package controllers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
)

// CreateProjectBody is the payload of POST /projects. The owner is the requester.
type CreateProjectBody struct {
	WorkspaceSlug string  `json:"workspace_slug" validate:"required"`
	Name          string  `json:"name" validate:"required,max=80"`
	Description   string  `json:"description" validate:"max=220"`
	Color         int     `json:"color" validate:"required,min=1,max=8"`
	Logo          *string `json:"logo,omitempty"`
}

// MyPermissionsResponse is what the requester can do in a project
type MyPermissionsResponse struct {
	IsAdmin     bool               `json:"is_admin"`
	Permissions []roles.Permission `json:"permissions"`
}

func RegisterProjectRoutes(r *router.Group, svc *services.Services) {
	r.POST("/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		var body CreateProjectBody
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		ws, err := svc.Workspace.GetBySlug(stdCtx, body.WorkspaceSlug)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}
		if !authorize(ctx, stdCtx, svc, access.HasPerm(roles.ViewWorkspace), access.WorkspaceByID(ws.ID)) {
			return
		}

		created, err := svc.Project.Create(stdCtx, &project.CreateProjectRequest{
			Name:        body.Name,
			Description: body.Description,
			Color:       body.Color,
			Logo:        body.Logo,
			WorkspaceID: ws.ID,
			OwnerID:     claims.UserID,
		})
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Project created successfully", created)
	})

	r.GET("/projects/{slug}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ViewProject())
		if !ok {
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", pj)
	})

	r.GET("/projects/{slug}/my-permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		slug, _ := pathParam(ctx, "slug")

		perms, isAdmin, err := svc.Access.ProjectPermissions(stdCtx, subjectFrom(ctx), access.ProjectBySlug(slug))
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "success", MyPermissionsResponse{IsAdmin: isAdmin, Permissions: perms})
	})

	r.GET("/projects/{slug}/roles", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		list, err := svc.Project.GetRolesWithCounts(stdCtx, pj.ID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Roles retrieved successfully", list)
	})

	r.POST("/projects/{slug}/roles", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		var body project.CreateRoleRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		role, err := svc.Project.CreateRole(stdCtx, pj, &body)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Role created successfully", role)
	})

	// Admin role permissions are not editable (403); incompatible sets are rejected (400)
	r.PUT("/projects/{slug}/roles/{role_slug}/permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		roleSlug, _ := pathParam(ctx, "role_slug")
		role, err := svc.Project.GetRole(stdCtx, pj.ID, roleSlug)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		var body project.UpdatePermissionsRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		updated, err := svc.Project.UpdateRolePermissions(stdCtx, role, body.Permissions)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Role permissions updated successfully", updated)
	})

	r.PUT("/projects/{slug}/public-permissions", func(ctx *fasthttp.RequestCtx) {
		updateTier(ctx, svc, svc.Project.UpdatePublicPermissions)
	})

	r.PUT("/projects/{slug}/workspace-member-permissions", func(ctx *fasthttp.RequestCtx) {
		updateTier(ctx, svc, svc.Project.UpdateWorkspaceMemberPermissions)
	})

	r.GET("/projects/{slug}/memberships", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ViewProject())
		if !ok {
			return
		}

		list, err := svc.Project.GetMemberships(stdCtx, pj.ID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Memberships retrieved successfully", list)
	})
}

func updateTier(ctx *fasthttp.RequestCtx, svc *services.Services, update func(context.Context, *project.Project, []string) (*project.Project, error)) {
	stdCtx := requestContext(ctx)
	pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
	if !ok {
		return
	}

	var body project.UpdatePermissionsRequest
	if !parseBody(ctx, stdCtx, &body) {
		return
	}

	updated, err := update(stdCtx, pj, body.Permissions)
	if err != nil {
		writeError(ctx, stdCtx, err)
		return
	}

	writeOK(ctx, stdCtx, "Project permissions updated successfully", updated)
}

// loadProject fetches the project of the slug path param and checks guard on it
func loadProject(ctx *fasthttp.RequestCtx, stdCtx context.Context, svc *services.Services, guard access.Guard) (*project.Project, bool) {
	slug, _ := pathParam(ctx, "slug")
	pj, err := svc.Project.GetBySlug(stdCtx, slug)
	if err != nil {
		writeError(ctx, stdCtx, err)
		return nil, false
	}
	if !authorize(ctx, stdCtx, svc, guard, access.ProjectByID(pj.ID)) {
		return nil, false
	}
	return pj, true
}
