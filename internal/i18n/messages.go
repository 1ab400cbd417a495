package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text is the key, so en-US needs no entries of its own.
const (
	MsgNotFound            = "Not found"
	MsgForbidden           = "You don't have permission to perform this action"
	MsgUnauthorized        = "Authentication required"
	MsgInvalidCredentials  = "Invalid username or password"
	MsgInternalError       = "Something went wrong, please try again later"
	MsgInvalidRequest      = "Invalid request"
	MsgInvalidField        = "Field %s is not valid"
	MsgNonEditableRole     = "The admin role permissions cannot be edited"
	MsgBadPermissionsSet   = "The given permissions are not valid"
	MsgDuplicateMembership = "The user is already a member"
	MsgDuplicateRole       = "A role with that name already exists"
	MsgWorkspaceNotPremium = "Only premium workspaces can have custom roles"
	MsgInvitationNotFound  = "Invitation not found"
	MsgInvitationClosed    = "The invitation is no longer pending"
	MsgInvitationEmail     = "The invitation belongs to another email"
	MsgInvalidEmail        = "Invalid email"
	MsgUserAlreadyExists   = "A user with that username or email already exists"
	MsgInvalidState        = "Login session expired, please try again"
)

var es = map[string]string{
	MsgNotFound:            "No encontrado",
	MsgForbidden:           "No tienes permiso para realizar esta acción",
	MsgUnauthorized:        "Es necesario identificarse",
	MsgInvalidCredentials:  "Usuario o contraseña incorrectos",
	MsgInternalError:       "Algo ha ido mal, inténtalo de nuevo más tarde",
	MsgInvalidRequest:      "Petición no válida",
	MsgInvalidField:        "El campo %s no es válido",
	MsgNonEditableRole:     "Los permisos del rol de administración no se pueden editar",
	MsgBadPermissionsSet:   "Los permisos indicados no son válidos",
	MsgDuplicateMembership: "El usuario ya es miembro",
	MsgDuplicateRole:       "Ya existe un rol con ese nombre",
	MsgWorkspaceNotPremium: "Solo los espacios de trabajo premium pueden tener roles propios",
	MsgInvitationNotFound:  "Invitación no encontrada",
	MsgInvitationClosed:    "La invitación ya no está pendiente",
	MsgInvitationEmail:     "La invitación pertenece a otro email",
	MsgInvalidEmail:        "Email no válido",
	MsgUserAlreadyExists:   "Ya existe un usuario con ese nombre o email",
	MsgInvalidState:        "La sesión de login ha caducado, inténtalo de nuevo",
}

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(fallbackTag))
	spanish := language.MustParse("es-ES")
	for key, msg := range es {
		_ = b.SetString(spanish, key, msg)
	}
	return b
}
