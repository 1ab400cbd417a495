package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260301090400",
		up:      mig_20260301090400_stories_up,
		down:    mig_20260301090400_stories_down,
	})
}

func mig_20260301090400_stories_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS workflows (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            name VARCHAR(255) NOT NULL,
            slug VARCHAR(255) NOT NULL,
            position INTEGER NOT NULL DEFAULT 0,
            UNIQUE (project_id, slug)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS workflow_statuses (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
            name VARCHAR(255) NOT NULL,
            slug VARCHAR(255) NOT NULL,
            color INTEGER NOT NULL DEFAULT 1,
            position INTEGER NOT NULL DEFAULT 0
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS stories (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            ref INTEGER NOT NULL,
            title VARCHAR(500) NOT NULL,
            position BIGINT NOT NULL DEFAULT 0,
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
            status_id UUID NOT NULL REFERENCES workflow_statuses(id) ON DELETE CASCADE,
            created_by_id UUID REFERENCES users(id) ON DELETE SET NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            UNIQUE (project_id, ref)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS story_assignments (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            UNIQUE (story_id, user_id)
        );
    `)
	return err
}

func mig_20260301090400_stories_down(tx *sqlx.Tx) error {
	for _, table := range []string{"story_assignments", "stories", "workflow_statuses", "workflows"} {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + table + `;`); err != nil {
			return err
		}
	}
	return nil
}
