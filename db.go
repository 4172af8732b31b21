package pixelquad

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/pixelquad/quad"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ModelDB caches converted models keyed by the SHA-1 of the source image and
// the conversion options.
type ModelDB struct {
	db *sql.DB
}

// NewModelDB opens or creates the database at file.
func NewModelDB(file string) (*ModelDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS model (id TEXT PRIMARY KEY NOT NULL, image_id INTEGER NOT NULL, options TEXT NOT NULL, quads INTEGER NOT NULL, data BLOB NOT NULL, UNIQUE(image_id, options), FOREIGN KEY(image_id) REFERENCES image(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &ModelDB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *ModelDB) Close() error {
	return db.db.Close()
}

func (db *ModelDB) addImage(sha string, width, height int) (int64, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM image WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT OR IGNORE INTO image (sha1, width, height) VALUES (?, ?, ?)", sha, width, height)
		if err != nil {
			return 0, err
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			// Another worker got there first
			return id, db.db.QueryRow("SELECT id FROM image WHERE sha1 = ?", sha).Scan(&id)
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// StoreModel stores m against the image and options, replacing any previous
// model, and returns the new model id.
func (db *ModelDB) StoreModel(sha, options string, m *quad.Model) (string, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return "", err
	}

	image, err := db.addImage(sha, m.Width, m.Height)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	if _, err := db.db.Exec("INSERT OR REPLACE INTO model (id, image_id, options, quads, data) VALUES (?, ?, ?, ?, ?)", id, image, options, m.Len(), b); err != nil {
		return "", err
	}

	return id, nil
}

// FindModel returns the model for the image and options or nil if there
// isn't one.
func (db *ModelDB) FindModel(sha, options string) (*quad.Model, error) {
	var data []byte
	switch err := db.db.QueryRow("SELECT m.data FROM model AS m JOIN image AS i ON m.image_id = i.id WHERE i.sha1 = ? AND m.options = ?", sha, options).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		m := new(quad.Model)
		if err := m.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, err
	}
}

// Count returns the number of images and models stored.
func (db *ModelDB) Count() (images, models int, err error) {
	if err = db.db.QueryRow("SELECT COUNT(*) FROM image").Scan(&images); err != nil {
		return
	}
	err = db.db.QueryRow("SELECT COUNT(*) FROM model").Scan(&models)
	return
}
