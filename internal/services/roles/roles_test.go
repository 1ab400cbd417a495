package roles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePermissions(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		perms   []Permission
		wantErr bool
	}{
		{name: "empty set", scope: ScopeProject, perms: nil},
		{name: "view only", scope: ScopeProject, perms: []Permission{ViewStory}},
		{name: "view and write", scope: ScopeProject, perms: []Permission{ViewStory, ModifyStory, CommentStory}},
		{name: "full project set", scope: ScopeProject, perms: ProjectPermissions()},
		{name: "full workspace set", scope: ScopeWorkspace, perms: WorkspacePermissions()},
		{name: "unknown token", scope: ScopeProject, perms: []Permission{"view_us"}, wantErr: true},
		{name: "write without view", scope: ScopeProject, perms: []Permission{ModifyStory}, wantErr: true},
		{name: "task write without task view", scope: ScopeProject, perms: []Permission{ViewStory, AddTask}, wantErr: true},
		{name: "project token in workspace scope", scope: ScopeWorkspace, perms: []Permission{ViewStory}, wantErr: true},
		{name: "workspace token in project scope", scope: ScopeProject, perms: []Permission{ViewWorkspace}, wantErr: true},
		{name: "create project has no view counterpart", scope: ScopeWorkspace, perms: []Permission{CreateProject}},
		{name: "unknown scope", scope: Scope("org"), perms: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermissions(tt.scope, tt.perms)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPermissionsSet)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPreparePermissionsRejectsAdminRole(t *testing.T) {
	_, err := PreparePermissions(ScopeProject, true, []Permission{ViewStory})
	assert.ErrorIs(t, err, ErrNonEditableRole)
}

func TestPreparePermissionsNormalizes(t *testing.T) {
	perms, err := PreparePermissions(ScopeProject, false, []Permission{ViewTask, ViewStory, ViewStory, " "})
	require.NoError(t, err)
	assert.Equal(t, []Permission{ViewStory, ViewTask}, perms)
}

func TestPreparePermissionsSingleView(t *testing.T) {
	perms, err := PreparePermissions(ScopeProject, false, []Permission{"view_story"})
	require.NoError(t, err)
	assert.Equal(t, []Permission{"view_story"}, perms)
}

func TestAllPermissionsReturnsCopy(t *testing.T) {
	perms := ProjectPermissions()
	perms[0] = "tampered"
	assert.Equal(t, ViewStory, ProjectPermissions()[0])
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "several-roles", Slugify("Several Roles"))
	assert.Equal(t, "ux-ui", Slugify("UX/UI"))
	assert.Equal(t, "pequeno-proyecto", Slugify("Pequeño  proyecto!"))
	assert.Equal(t, "u1001-is-ws-member-hasprojects-t", Slugify("u1001 is ws member, hasProjects:T"))
	assert.Equal(t, "", Slugify("!!"))
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"qa": true, "qa-2": true, "role": true}
	exists := func(slug string) (bool, error) { return taken[slug], nil }

	slug, err := UniqueSlug("qa", "role", exists)
	require.NoError(t, err)
	assert.Equal(t, "qa-3", slug)

	slug, err = UniqueSlug("dev", "role", exists)
	require.NoError(t, err)
	assert.Equal(t, "dev", slug)

	slug, err = UniqueSlug("", "role", exists)
	require.NoError(t, err)
	assert.Equal(t, "role-2", slug)

	boom := errors.New("boom")
	_, err = UniqueSlug("qa", "role", func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
