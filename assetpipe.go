/*
Package assetpipe is a library for importing game assets.

Images found below a base directory are converted, optionally against a
palette image, into artifacts held in an SQLite database ready to be
packaged for the engine.
*/
package assetpipe

import (
	"github.com/bodgit/assetpipe/resource"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

// DefaultWorkers is the number of concurrent imports run by Scan.
const DefaultWorkers = 10

// Pipeline reads assets with a resource.Locator, imports them and stores the
// resulting artifacts in an AssetDB.
type Pipeline struct {
	db      *AssetDB
	locator *resource.Locator
	logger  loggo.Logger

	// Workers is the number of concurrent imports run by Scan
	Workers int
	// Force imports assets even if they are up to date
	Force bool
}

// New returns a Pipeline importing assets found below base into the database
// in dbFile.
func New(dbFile, base string, logger loggo.Logger) (*Pipeline, error) {
	db, err := NewAssetDB(dbFile)
	if err != nil {
		return nil, errors.Annotatef(err, "opening database %q", dbFile)
	}

	return &Pipeline{
		db:      db,
		locator: resource.NewLocator(base, resource.FileSystem{}),
		logger:  logger,
		Workers: DefaultWorkers,
	}, nil
}

// Close closes the underlying database
func (p *Pipeline) Close() error {
	return p.db.Close()
}

// DB returns the database artifacts are stored in
func (p *Pipeline) DB() *AssetDB {
	return p.db
}
