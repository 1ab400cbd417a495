package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260301090500",
		up:      mig_20260301090500_access_notify_up,
		down:    mig_20260301090500_access_notify_down,
	})
}

// accessTables are the tables whose changes can alter an access decision
var accessTables = []string{
	"workspaces",
	"workspace_roles",
	"workspace_memberships",
	"projects",
	"project_roles",
	"project_memberships",
}

func mig_20260301090500_access_notify_up(tx *sqlx.Tx) error {
	// Payload is "table:operation"
	_, err := tx.Exec(`
		CREATE OR REPLACE FUNCTION notify_access_change()
		RETURNS TRIGGER AS $$
		BEGIN
			PERFORM pg_notify('access_changes', TG_TABLE_NAME || ':' || TG_OP);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;
	`)
	if err != nil {
		return err
	}

	for _, table := range accessTables {
		_, err = tx.Exec(`
			CREATE TRIGGER ` + table + `_access_notify
			AFTER INSERT OR UPDATE OR DELETE ON ` + table + `
			FOR EACH STATEMENT EXECUTE FUNCTION notify_access_change();
		`)
		if err != nil {
			return err
		}
	}

	return nil
}

func mig_20260301090500_access_notify_down(tx *sqlx.Tx) error {
	for _, table := range accessTables {
		if _, err := tx.Exec(`DROP TRIGGER IF EXISTS ` + table + `_access_notify ON ` + table + `;`); err != nil {
			return err
		}
	}

	_, err := tx.Exec(`DROP FUNCTION IF EXISTS notify_access_change();`)
	return err
}
