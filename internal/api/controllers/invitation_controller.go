package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/perrors"
	"github.com/taigaio/taiga/internal/services"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/invitation"
)

func RegisterInvitationRoutes(r *router.Group, svc *services.Services) {
	r.POST("/projects/{slug}/invitations", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		var body invitation.CreateInvitationRequest
		if !parseBody(ctx, stdCtx, &body) {
			return
		}

		role, err := svc.Project.GetRole(stdCtx, pj.ID, body.RoleSlug)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		inv, err := svc.Invitation.Create(stdCtx, pj, role, body.Email, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Invitation created successfully", inv)
	})

	r.GET("/projects/{slug}/invitations", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		status := invitation.Status(ctx.QueryArgs().Peek("status"))
		switch status {
		case "", invitation.StatusPending, invitation.StatusAccepted, invitation.StatusRevoked:
		default:
			t := i18n.FromContext(stdCtx)
			writeError(ctx, stdCtx, perrors.NewErrUnprocessable(t.Gettext(i18n.MsgInvalidField, "status"), nil))
			return
		}

		list, err := svc.Invitation.ListByProject(stdCtx, pj.ID, status)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Invitations retrieved successfully", list)
	})

	r.POST("/projects/{slug}/invitations/{id}/revoke", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		pj, ok := loadProject(ctx, stdCtx, svc, access.ProjectAdmin())
		if !ok {
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, invitation.ErrInvitationNotFound)
			return
		}

		revoked, err := svc.Invitation.Revoke(stdCtx, pj, id)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Invitation revoked successfully", revoked)
	})

	// The invitation email must be the requester's email
	r.POST("/invitations/{id}/accept", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, invitation.ErrInvitationNotFound)
			return
		}

		u, err := svc.User.GetByID(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		accepted, err := svc.Invitation.Accept(stdCtx, id, u)
		if err != nil {
			writeError(ctx, stdCtx, err)
			return
		}

		writeOK(ctx, stdCtx, "Invitation accepted successfully", accepted)
	})
}
