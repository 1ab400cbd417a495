package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260301090600",
		up:      mig_20260301090600_project_access_columns_up,
		down:    mig_20260301090600_project_access_columns_down,
	})
}

// projectAccessColumns are the projects columns read by access decisions. Story reference
// bumps only touch last_ref and must not flush the access cache.
const projectAccessColumns = "slug, workspace_id, owner_id, public_permissions, workspace_member_permissions"

func mig_20260301090600_project_access_columns_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS projects_access_notify ON projects;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER projects_access_notify
		AFTER INSERT OR DELETE ON projects
		FOR EACH STATEMENT EXECUTE FUNCTION notify_access_change();
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER projects_access_notify_update
		AFTER UPDATE OF ` + projectAccessColumns + ` ON projects
		FOR EACH STATEMENT EXECUTE FUNCTION notify_access_change();
	`)
	return err
}

func mig_20260301090600_project_access_columns_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS projects_access_notify_update ON projects;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TRIGGER IF EXISTS projects_access_notify ON projects;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER projects_access_notify
		AFTER INSERT OR UPDATE OR DELETE ON projects
		FOR EACH STATEMENT EXECUTE FUNCTION notify_access_change();
	`)
	return err
}
