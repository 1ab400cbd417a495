package sampledata

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

const (
	samplePassword = "123123"
	emailDomain    = "taiga.demo"

	numUserColors      = 8
	numProjectColors   = 8
	numWorkspaceColors = 8

	defaultMaxStories = 30
	bigKanbanStatuses = 40

	sampleLogo = "/media/sample-data/logo.png"
)

// storyTitleSizes gives 80 chars 30% of the time, 120 chars 60% and 490 chars 10%.
var storyTitleSizes = []int{80, 80, 80, 120, 120, 120, 120, 120, 120, 490}

// Probability (0-99) of a story being assigned, by the slug of its status
var assignmentChance = map[string]int{
	"new":         10,
	"ready":       40,
	"in-progress": 80,
	"done":        95,
}

const defaultAssignmentChance = 25

// Services are the domain services the loader writes through
type Services struct {
	User       *user.UserService
	Workspace  *workspace.WorkspaceService
	Project    *project.ProjectService
	Invitation *invitation.InvitationService
	Story      *story.StoryService
}

type Options struct {
	// NumUsers is the number of generic userN accounts
	NumUsers int
	// NumOwners is how many of them own a basic and a premium workspace each
	NumOwners int
	// BigKanbans adds the 1k and 2k stories projects
	BigKanbans bool
}

func DefaultOptions() Options {
	return Options{
		NumUsers:   105,
		NumOwners:  10,
		BigKanbans: true,
	}
}

// Loader fills an empty database with demo data. Every random choice comes from the
// sources seeded in NewLoader, so the same seed yields the same data.
type Loader struct {
	svc  Services
	opts Options

	fake *gofakeit.Faker
	rnd  *rand.Rand
	now  time.Time

	passwordHash string
}

func NewLoader(svc Services, seed int64, opts Options) *Loader {
	if opts.NumOwners > opts.NumUsers {
		opts.NumOwners = opts.NumUsers
	}

	return &Loader{
		svc:  svc,
		opts: opts,
		fake: gofakeit.NewFaker(rand.NewPCG(uint64(seed), 0), false),
		rnd:  rand.New(rand.NewPCG(uint64(seed), 1)),
		now:  time.Now().UTC(),
	}
}

// Load creates users, workspaces, projects, invitations and stories, followed by the
// fixed scenarios used to check permissions by hand.
func (l *Loader) Load(ctx context.Context) error {
	hash, err := user.HashPassword(samplePassword)
	if err != nil {
		return err
	}
	l.passwordHash = hash

	slog.InfoContext(ctx, "Creating sample users")
	allUsers, err := l.createUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sample users: %w", err)
	}
	users := allUsers[:l.opts.NumOwners]

	slog.InfoContext(ctx, "Creating sample workspaces")
	var workspaces []*workspace.Workspace
	for _, owner := range users {
		basic, err := l.createWorkspace(ctx, owner, "", false)
		if err != nil {
			return err
		}
		premium, err := l.createWorkspace(ctx, owner, "", true)
		if err != nil {
			return err
		}
		workspaces = append(workspaces, basic, premium)
	}

	for _, ws := range workspaces {
		if err := l.createWorkspaceMemberships(ctx, ws, users); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Creating sample projects")
	var projects []*project.Project
	for _, ws := range workspaces {
		pj, err := l.createProject(ctx, ws, ws.OwnerID, "", "")
		if err != nil {
			return err
		}
		if err := l.createProjectMemberships(ctx, pj, users); err != nil {
			return err
		}
		projects = append(projects, pj)
	}

	for _, pj := range projects {
		if err := l.createProjectInvitations(ctx, pj, users); err != nil {
			return err
		}
		if err := l.createStories(ctx, pj, 0, 0); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Creating scenarios to check permissions")
	customOwner := users[0]
	custom, err := l.createWorkspace(ctx, customOwner, "Custom workspace", false)
	if err != nil {
		return err
	}
	if err := l.createEmptyProject(ctx, custom, customOwner); err != nil {
		return err
	}
	if err := l.createInconsistentPermissionsProject(ctx, custom, customOwner); err != nil {
		return err
	}
	if err := l.createProjectWithSeveralRoles(ctx, custom, customOwner, users); err != nil {
		return err
	}
	if err := l.createMembershipScenario(ctx); err != nil {
		return fmt.Errorf("failed to create membership scenario: %w", err)
	}

	slog.InfoContext(ctx, "Creating scenario to check project invitations")
	if err := l.createInvitationsScenario(ctx); err != nil {
		return fmt.Errorf("failed to create invitations scenario: %w", err)
	}
	slog.InfoContext(ctx, "Creating scenario to check user searching")
	if err := l.createSearchScenario(ctx); err != nil {
		return fmt.Errorf("failed to create search scenario: %w", err)
	}
	slog.InfoContext(ctx, "Creating scenario to check revoke invitations")
	if err := l.createRevokeScenario(ctx); err != nil {
		return fmt.Errorf("failed to create revoke scenario: %w", err)
	}

	if l.opts.BigKanbans {
		slog.InfoContext(ctx, "Creating scenarios to check big kanbans")
		if err := l.createBigKanban(ctx, custom, customOwner, allUsers, "1k Stories", "This project contains 1000 stories.", 1000, 0); err != nil {
			return err
		}
		if err := l.createBigKanban(ctx, custom, customOwner, allUsers, "2k Stories, 40 statuses", "This project contains 2000 stories and 40 statuses.", 2000, bigKanbanStatuses); err != nil {
			return err
		}
	}

	return nil
}

// pick returns a random element of list
func pick[T any](r *rand.Rand, list []T) T {
	return list[r.IntN(len(list))]
}
