package roles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNonEditableRole     = errors.New("admin role permissions cannot be edited")
	ErrBadPermissionsSet   = errors.New("given permissions are incompatible")
	ErrDuplicateMembership = errors.New("user already has a membership in this scope")
	ErrRoleNotFound        = errors.New("role not found")
	ErrDuplicateRole       = errors.New("a role with this slug already exists")
)

// writePrefixes lists the verbs that need the matching view permission.
var writePrefixes = []string{"add_", "modify_", "delete_", "comment_"}

// ValidatePermissions checks that every token belongs to the scope enumeration and that
// write permissions are never granted without the view permission of the same object.
func ValidatePermissions(scope Scope, perms []Permission) error {
	valid := AllPermissions(scope)
	if valid == nil {
		return fmt.Errorf("%w: unknown scope %q", ErrBadPermissionsSet, scope)
	}

	for _, p := range perms {
		if !Contains(valid, p) {
			return fmt.Errorf("%w: unknown permission %q", ErrBadPermissionsSet, p)
		}
	}

	for _, p := range perms {
		for _, prefix := range writePrefixes {
			object, ok := strings.CutPrefix(p, prefix)
			if !ok {
				continue
			}
			view := "view_" + object
			if Contains(valid, view) && !Contains(perms, view) {
				return fmt.Errorf("%w: %q requires %q", ErrBadPermissionsSet, p, view)
			}
		}
	}

	return nil
}

// CheckEditable rejects edits on admin roles, whose permission set is always the full one.
func CheckEditable(isAdmin bool) error {
	if isAdmin {
		return ErrNonEditableRole
	}
	return nil
}

// PreparePermissions validates perms for an edit on a role and returns the stored form.
func PreparePermissions(scope Scope, isAdmin bool, perms []Permission) ([]Permission, error) {
	if err := CheckEditable(isAdmin); err != nil {
		return nil, err
	}

	normalized := Normalize(perms)
	if err := ValidatePermissions(scope, normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}

var slugTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a display name into a lowercase, dash separated identifier.
func Slugify(name string) string {
	plain, _, err := transform.String(slugTransformer, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// UniqueSlug returns base, or base-2, base-3 and so on, whichever exists reports free
// first. An empty base is replaced by fallback.
func UniqueSlug(base, fallback string, exists func(slug string) (bool, error)) (string, error) {
	if base == "" {
		base = fallback
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := exists(slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}
