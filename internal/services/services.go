package services

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/taigaio/taiga/internal/adapters"
	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/db"
	"github.com/taigaio/taiga/internal/pubsub"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

type Services struct {
	DB *sqlx.DB

	User       *user.UserService
	Workspace  *workspace.WorkspaceService
	Project    *project.ProjectService
	Invitation *invitation.InvitationService
	Story      *story.StoryService
	Access     *access.Service

	// AccessCache is nil when REDIS_ADDR is not configured
	AccessCache *access.CachedSource
	redis       *redis.Client
}

func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	svc := New(dbconn)
	svc.DB = dbconn

	if conf.REDIS_ADDR != "" {
		svc.redis = redis.NewClient(&redis.Options{
			Addr:     conf.REDIS_ADDR,
			Password: conf.REDIS_PASSWORD,
			DB:       conf.REDIS_DB,
		})
		svc.AccessCache = access.NewCachedSource(
			adapters.NewInternalAccessFacts(svc.Workspace, svc.Project),
			svc.redis,
			conf.ACCESS_CACHE_TTL,
		)
		svc.Access = access.NewService(svc.AccessCache)

		// Local writes drop the cache right after commit, NOTIFY covers other instances
		svc.Workspace.OnAccessChange(svc.invalidateAccess)
		svc.Project.OnAccessChange(svc.invalidateAccess)
		svc.Invitation.OnAccessChange(svc.invalidateAccess)
		slog.Info("Access cache enabled", slog.String("addr", conf.REDIS_ADDR), slog.Duration("ttl", conf.ACCESS_CACHE_TTL))
	}

	return svc
}

// New wires the services over q, either a connection or a transaction. No cache is used.
func New(q db.Querier) *Services {
	users := user.NewUserService(user.NewUserRepo(q))
	workspaces := workspace.NewWorkspaceService(workspace.NewWorkspaceRepo(q))
	stories := story.NewStoryService(story.NewStoryRepo(q))
	projects := project.NewProjectService(project.NewProjectRepo(q), stories)

	return &Services{
		User:       users,
		Workspace:  workspaces,
		Project:    projects,
		Invitation: invitation.NewInvitationService(invitation.NewInvitationRepo(q), users, projects),
		Story:      stories,
		Access:     access.NewService(adapters.NewInternalAccessFacts(workspaces, projects)),
	}
}

// WatchAccessChanges drops the access cache whenever roles, memberships or permission
// tiers change in the database
func (s *Services) WatchAccessChanges(ps *pubsub.PubSub) {
	if s.AccessCache == nil {
		return
	}
	ps.Subscribe(func(event pubsub.ChangeEvent) {
		ctx := context.Background()
		if err := s.AccessCache.Invalidate(ctx); err != nil {
			slog.ErrorContext(ctx, "Unable to invalidate access cache", slog.String("change", string(event.ChangeType)), slog.Any("error", err))
			return
		}
		slog.Debug("Access cache invalidated", slog.String("change", string(event.ChangeType)), slog.String("operation", event.Operation))
	})
}

func (s *Services) invalidateAccess(ctx context.Context) {
	if err := s.AccessCache.Invalidate(ctx); err != nil {
		slog.ErrorContext(ctx, "Unable to invalidate access cache", slog.Any("error", err))
	}
}

func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Unable to close redis client", slog.Any("error", err))
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			slog.Error("Unable to close database connection", slog.Any("error", err))
		}
	}
}
