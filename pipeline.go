package assetpipe

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bodgit/assetpipe/importer"
	"github.com/bodgit/assetpipe/resource"
	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// Result summarises a Scan.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

type counters struct {
	imported, skipped, failed int64
}

func (c *counters) result() Result {
	return Result{
		Imported: int(atomic.LoadInt64(&c.imported)),
		Skipped:  int(atomic.LoadInt64(&c.skipped)),
		Failed:   int(atomic.LoadInt64(&c.failed)),
	}
}

func (p *Pipeline) readAsset(name string) (importer.Asset, error) {
	d, err := p.locator.Get(name, false)
	if err != nil {
		return importer.Asset{}, err
	}
	return importer.Asset{
		Name: name,
		Data: d.(*resource.Static).Bytes(),
	}, nil
}

// checksum computes the checksum of the named asset, palette and options
// without reading the asset into memory. It matches the checksum the
// importer stores with the artifact.
func (p *Pipeline) checksum(name string, pal *importer.Asset, opts importer.Options) (string, error) {
	d, err := p.locator.Get(name, true)
	if err != nil {
		return "", err
	}

	r, err := d.(*resource.Stream).Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	h := importer.NewHash()
	if pal != nil {
		h.AddOptions(opts)
	}
	if err := h.Add(name, r.Size(), r); err != nil {
		return "", err
	}

	if pal != nil {
		if err := h.Add(pal.Name, int64(len(pal.Data)), bytes.NewReader(pal.Data)); err != nil {
			return "", err
		}
	}

	return h.Sum(), nil
}

// importAsset imports the named asset unless the database already holds an
// artifact produced from identical inputs. It reports whether an import
// happened.
func (p *Pipeline) importAsset(name string, pal *importer.Asset, opts importer.Options) (bool, error) {
	sum, err := p.checksum(name, pal, opts)
	if err != nil {
		return false, err
	}

	existing, err := p.db.Checksum(name)
	if err != nil {
		return false, err
	}
	if existing == sum && !p.Force {
		p.logger.Debugf("%q is up to date", name)
		return false, nil
	}

	source, err := p.readAsset(name)
	if err != nil {
		return false, err
	}

	if pal == nil {
		err = importer.ImageImporter{}.ImportImage(source, p.db)
	} else {
		err = importer.ImageImporter{}.Import(source, *pal, opts, p.db)
	}
	if err != nil {
		return false, err
	}

	p.logger.Infof("Imported %q (%s)", name, humanize.Bytes(uint64(len(source.Data))))

	return true, nil
}

func (p *Pipeline) readPalette(name string) (*importer.Asset, error) {
	if name == "" {
		return nil, nil
	}
	pal, err := p.readAsset(name)
	if err != nil {
		return nil, errors.Annotatef(err, "reading palette")
	}
	return &pal, nil
}

// Import imports the named asset, converting it against the named palette
// unless that is empty. An asset already imported from the same inputs is
// left alone.
func (p *Pipeline) Import(name, paletteName string, opts importer.Options) error {
	pal, err := p.readPalette(paletteName)
	if err != nil {
		return err
	}

	_, err = p.importAsset(name, pal, opts)
	return err
}

func (p *Pipeline) findAssets(ctx context.Context, skip string) (<-chan string, <-chan error, error) {
	base := p.locator.Base()
	if base == "" {
		base = "."
	}

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if _, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]; !ok {
				return nil
			}

			name, err := filepath.Rel(base, file)
			if err != nil {
				return err
			}
			name = filepath.ToSlash(name)

			if name == skip {
				return nil
			}

			select {
			case out <- name:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (p *Pipeline) importWorker(ctx context.Context, in <-chan string, pal *importer.Asset, opts importer.Options, c *counters) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for name := range in {
			imported, err := p.importAsset(name, pal, opts)
			switch {
			case err != nil:
				// One bad asset shouldn't stop the others
				p.logger.Errorf("Unable to import %q: %v", name, err)
				atomic.AddInt64(&c.failed, 1)
			case imported:
				atomic.AddInt64(&c.imported, 1)
			default:
				atomic.AddInt64(&c.skipped, 1)
			}
		}
	}()
	return errc, nil
}

// waitForPipeline drains every channel so that no stage is still running
// when it returns, and reports the first error seen.
func waitForPipeline(errs ...<-chan error) error {
	var first error
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan imports every image below the base directory, converting each one
// against the named palette unless that is empty. Assets that fail to import
// are logged and counted in the result without stopping the scan; an error is
// only returned if the palette cannot be read or the directory cannot be
// walked.
func (p *Pipeline) Scan(paletteName string, opts importer.Options) (Result, error) {
	var c counters

	pal, err := p.readPalette(paletteName)
	if err != nil {
		return c.result(), err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	var skip string
	if paletteName != "" {
		skip = path.Clean(filepath.ToSlash(paletteName))
	}

	names, errc, err := p.findAssets(ctx, skip)
	if err != nil {
		return c.result(), err
	}
	errcList = append(errcList, errc)

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		errc, err := p.importWorker(ctx, names, pal, opts, &c)
		if err != nil {
			return c.result(), err
		}
		errcList = append(errcList, errc)
	}

	err = waitForPipeline(errcList...)

	r := c.result()
	p.logger.Infof("Imported %d, skipped %d, failed %d", r.Imported, r.Skipped, r.Failed)

	return r, err
}
