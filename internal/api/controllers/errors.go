package controllers

import (
	"context"
	"errors"

	"github.com/taigaio/taiga/internal/api/authenticator"
	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/perrors"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// apiError maps domain errors to perrors.Err with a message in the request language.
// Errors that already are perrors.Err pass through.
func apiError(stdCtx context.Context, err error) perrors.Err {
	var perr perrors.Err
	if errors.As(err, &perr) {
		return perr
	}

	t := i18n.FromContext(stdCtx)
	var mapped error
	switch {
	case errors.Is(err, invitation.ErrInvitationNotFound):
		mapped = perrors.NewErrNotFound(t.Gettext(i18n.MsgInvitationNotFound), err)
	case errors.Is(err, access.ErrNotFound),
		errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, workspace.ErrMembershipNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrMembershipNotFound),
		errors.Is(err, story.ErrProjectNotFound),
		errors.Is(err, story.ErrWorkflowNotFound),
		errors.Is(err, roles.ErrRoleNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, authenticator.ErrOIDCDisabled):
		mapped = perrors.NewErrNotFound(t.Gettext(i18n.MsgNotFound), err)
	case errors.Is(err, access.ErrForbidden):
		mapped = perrors.NewErrForbidden(t.Gettext(i18n.MsgForbidden), err)
	case errors.Is(err, roles.ErrNonEditableRole):
		mapped = perrors.NewErrForbidden(t.Gettext(i18n.MsgNonEditableRole), err)
	case errors.Is(err, roles.ErrBadPermissionsSet):
		mapped = perrors.New(perrors.ErrCodeBadRequest, t.Gettext(i18n.MsgBadPermissionsSet), err)
	case errors.Is(err, roles.ErrDuplicateMembership), errors.Is(err, invitation.ErrAlreadyMember):
		mapped = perrors.New(perrors.ErrCodeConflict, t.Gettext(i18n.MsgDuplicateMembership), err)
	case errors.Is(err, roles.ErrDuplicateRole):
		mapped = perrors.New(perrors.ErrCodeConflict, t.Gettext(i18n.MsgDuplicateRole), err)
	case errors.Is(err, workspace.ErrWorkspaceNotPremium):
		mapped = perrors.New(perrors.ErrCodeBadRequest, t.Gettext(i18n.MsgWorkspaceNotPremium), err)
	case errors.Is(err, invitation.ErrInvitationNotPending):
		mapped = perrors.New(perrors.ErrCodeBadRequest, t.Gettext(i18n.MsgInvitationClosed), err)
	case errors.Is(err, invitation.ErrInvitationEmailMismatch):
		mapped = perrors.NewErrForbidden(t.Gettext(i18n.MsgInvitationEmail), err)
	case errors.Is(err, invitation.ErrInvalidEmail):
		mapped = perrors.NewErrUnprocessable(t.Gettext(i18n.MsgInvalidEmail), err)
	case errors.Is(err, user.ErrUserAlreadyExists):
		mapped = perrors.New(perrors.ErrCodeConflict, t.Gettext(i18n.MsgUserAlreadyExists), err)
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrInactiveUser),
		errors.Is(err, authenticator.ErrInvalidToken):
		mapped = perrors.New(perrors.ErrCodeUnauthorized, t.Gettext(i18n.MsgInvalidCredentials), err)
	case errors.Is(err, workspace.ErrInvalidName), errors.Is(err, project.ErrInvalidName):
		mapped = perrors.NewErrUnprocessable(t.Gettext(i18n.MsgInvalidField, "name"), err)
	default:
		mapped = perrors.NewErrInternalServerError(t.Gettext(i18n.MsgInternalError), err)
	}

	return mapped.(perrors.Err)
}
