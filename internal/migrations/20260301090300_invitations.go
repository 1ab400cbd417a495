package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260301090300",
		up:      mig_20260301090300_invitations_up,
		down:    mig_20260301090300_invitations_down,
	})
}

func mig_20260301090300_invitations_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS project_invitations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            role_id UUID NOT NULL REFERENCES project_roles(id) ON DELETE CASCADE,
            user_id UUID REFERENCES users(id) ON DELETE SET NULL,
            email VARCHAR(255) NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'revoked')),
            invited_by_id UUID REFERENCES users(id) ON DELETE SET NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	// At most one pending invitation per email and project
	_, err = tx.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS idx_project_invitations_pending
        ON project_invitations (project_id, lower(email)) WHERE status = 'pending';
    `)
	return err
}

func mig_20260301090300_invitations_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS project_invitations;`)
	return err
}
