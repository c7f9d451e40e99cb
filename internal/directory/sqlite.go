package directory

import (
	"database/sql"
	"fmt"

	"bolboard/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	online       INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteDirectory implementa Directory sobre um arquivo SQLite. Um arquivo só
// basta: o diretório guarda apenas identidade e presença, nada de estado de
// partida.
type SQLiteDirectory struct {
	db *sql.DB
}

// Open abre (ou cria) o banco e garante o schema.
func Open(path string) (*SQLiteDirectory, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrindo banco sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping no banco sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("criando schema: %w", err)
	}

	return &SQLiteDirectory{db: db}, nil
}

func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

func (d *SQLiteDirectory) FindByUserID(userID string) (*model.User, error) {
	row := d.db.QueryRow(
		`SELECT user_id, display_name, online FROM users WHERE user_id = ?`, userID)

	var user model.User
	var online int
	if err := row.Scan(&user.UserID, &user.DisplayName, &online); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("buscando usuário %s: %w", userID, err)
	}
	user.Online = online != 0
	return &user, nil
}

func (d *SQLiteDirectory) UpsertOnline(userID, displayName string) (*model.User, error) {
	_, err := d.db.Exec(`
		INSERT INTO users (user_id, display_name, online) VALUES (?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			online       = 1`,
		userID, displayName)
	if err != nil {
		return nil, fmt.Errorf("persistindo usuário %s: %w", userID, err)
	}

	return &model.User{UserID: userID, DisplayName: displayName, Online: true}, nil
}

func (d *SQLiteDirectory) SearchOnlineByDisplayName(phrase string) ([]model.User, error) {
	rows, err := d.db.Query(`
		SELECT user_id, display_name, online FROM users
		WHERE display_name LIKE '%' || ? || '%' AND online = 1
		ORDER BY display_name`,
		phrase)
	if err != nil {
		return nil, fmt.Errorf("buscando usuários por nome: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		var online int
		if err := rows.Scan(&user.UserID, &user.DisplayName, &online); err != nil {
			return nil, fmt.Errorf("lendo resultado da busca: %w", err)
		}
		user.Online = online != 0
		users = append(users, user)
	}
	return users, rows.Err()
}

func (d *SQLiteDirectory) SetOffline(userID string) error {
	if _, err := d.db.Exec(`UPDATE users SET online = 0 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("marcando usuário %s como offline: %w", userID, err)
	}
	return nil
}
