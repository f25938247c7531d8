package assetpipe

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/bodgit/assetpipe/importer"
	"github.com/bodgit/assetpipe/indexed"
	"github.com/juju/errors"
	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
)

// AssetDB stores imported artifacts in an SQLite database. It implements
// importer.Collector.
type AssetDB struct {
	db *sql.DB
	mu sync.Mutex
}

// Record is an artifact as held in the database.
type Record struct {
	Name     string
	Format   string
	Source   string
	Palette  string
	Checksum string
	Data     []byte
}

// Image decodes the stored artifact.
func (r *Record) Image() (image.Image, error) {
	m, _, err := image.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return nil, errors.Annotatef(err, "decoding artifact %q", r.Name)
	}
	return m, nil
}

// NewAssetDB opens, creating if necessary, the database in file.
func NewAssetDB(file string) (*AssetDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS artifact (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, format TEXT NOT NULL, source TEXT NOT NULL, palette TEXT, checksum TEXT NOT NULL, data BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &AssetDB{
		db: db,
	}, nil
}

// Close closes the database
func (db *AssetDB) Close() error {
	return db.db.Close()
}

func encodeArtifact(a importer.Artifact) ([]byte, error) {
	b := new(bytes.Buffer)
	switch a.Format {
	case importer.FormatIndexed:
		m, ok := a.Image.(*indexed.Image)
		if !ok {
			return nil, errors.NotValidf("%T as indexed artifact", a.Image)
		}
		if err := indexed.Encode(b, m); err != nil {
			return nil, err
		}
	case importer.FormatRGBA:
		if err := png.Encode(b, a.Image); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NotSupportedf("artifact format %q", a.Format)
	}
	return b.Bytes(), nil
}

// Output stores the artifact, replacing any previous artifact with the same
// name.
func (db *AssetDB) Output(a importer.Artifact) error {
	b, err := encodeArtifact(a)
	if err != nil {
		return errors.Annotatef(err, "encoding %q", a.Name)
	}

	var palette sql.NullString
	if a.Palette != "" {
		palette.String = a.Palette
		palette.Valid = true
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.Exec("INSERT OR REPLACE INTO artifact (name, format, source, palette, checksum, data) VALUES (?, ?, ?, ?, ?, ?)", a.Name, a.Format, a.Source, palette, a.Checksum, b); err != nil {
		return errors.Annotatef(err, "storing %q", a.Name)
	}

	return nil
}

// FindArtifact returns the named artifact, or nil if there isn't one.
func (db *AssetDB) FindArtifact(name string) (*Record, error) {
	var r Record
	var palette sql.NullString
	switch err := db.db.QueryRow("SELECT name, format, source, palette, checksum, data FROM artifact WHERE name = ?", name).Scan(&r.Name, &r.Format, &r.Source, &palette, &r.Checksum, &r.Data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		r.Palette = palette.String
		return &r, nil
	default:
		return nil, err
	}
}

// Checksum returns the checksum of the inputs of the named artifact, or an
// empty string if there is no such artifact.
func (db *AssetDB) Checksum(name string) (string, error) {
	var checksum string
	switch err := db.db.QueryRow("SELECT checksum FROM artifact WHERE name = ?", name).Scan(&checksum); err {
	case sql.ErrNoRows:
		return "", nil
	case nil:
		return checksum, nil
	default:
		return "", err
	}
}

// Names returns the names of all stored artifacts in order
func (db *AssetDB) Names() ([]string, error) {
	rows, err := db.db.Query("SELECT name FROM artifact ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
