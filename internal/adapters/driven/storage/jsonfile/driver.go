package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/strataconf/strata/internal/adapters/driven/storage"
	"github.com/strataconf/strata/internal/adapters/driven/storage/doctree"
	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
	"github.com/strataconf/strata/internal/logger"
)

// Ensure Driver implements the interface.
var _ driven.ConfigDriver = (*Driver)(nil)

// settingsFile is the document file name inside each instance directory.
const settingsFile = "settings.json"

// Driver is a file-based implementation of driven.ConfigDriver. One
// JSON document is kept per (namespace, instance) pair at
// <baseDir>/<namespace>/<instance>/settings.json. Documents are loaded
// lazily and written atomically via a temp file and rename.
type Driver struct {
	baseDir string

	mu    sync.Mutex
	cache map[domain.Namespace]map[string]any
	locks *storage.KeyedMutex

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  bool
}

// Option customizes the driver.
type Option func(*Driver)

// WithWatcher enables an fsnotify watcher on the data directory.
// Externally edited documents are dropped from the in-memory cache and
// picked up on the next read.
func WithWatcher() Option {
	return func(d *Driver) {
		d.done = make(chan struct{})
	}
}

// NewDriver creates a file-based driver rooted at baseDir, creating the
// directory if needed.
func NewDriver(baseDir string, opts ...Option) (*Driver, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	d := &Driver{
		baseDir: baseDir,
		cache:   make(map[domain.Namespace]map[string]any),
		locks:   storage.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.done != nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
		if err := watcher.Add(baseDir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching data directory: %w", err)
		}
		// Events only fire for directories in the watch set, so
		// namespace and instance directories that predate the driver
		// must be added too; later ones are added by handleEvent.
		if err := watchExisting(watcher, baseDir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching data directory: %w", err)
		}
		d.watcher = watcher
		go d.watch()
	}
	return d, nil
}

// watchExisting adds every <baseDir>/<ns>/<inst> directory already on
// disk to the watch set.
func watchExisting(watcher *fsnotify.Watcher, baseDir string) error {
	names, err := os.ReadDir(baseDir)
	if err != nil {
		return err
	}
	for _, nameEntry := range names {
		if !nameEntry.IsDir() {
			continue
		}
		nsDir := filepath.Join(baseDir, nameEntry.Name())
		if err := watcher.Add(nsDir); err != nil {
			return err
		}
		instances, err := os.ReadDir(nsDir)
		if err != nil {
			return err
		}
		for _, instEntry := range instances {
			if !instEntry.IsDir() {
				continue
			}
			if err := watcher.Add(filepath.Join(nsDir, instEntry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func nsOf(id domain.Identifier) domain.Namespace {
	return domain.Namespace{Name: id.Namespace(), InstanceID: id.InstanceID()}
}

func docPath(id domain.Identifier) []string {
	return id.Path()[2:]
}

func (d *Driver) docFile(ns domain.Namespace) string {
	return filepath.Join(d.baseDir, ns.Name, ns.InstanceID, settingsFile)
}

// loadDoc returns the cached document for ns, reading it from disk on
// first access. A missing file yields an empty document. Caller holds mu.
func (d *Driver) loadDoc(ns domain.Namespace) (map[string]any, error) {
	if doc, ok := d.cache[ns]; ok {
		return doc, nil
	}
	doc := make(map[string]any)
	raw, err := os.ReadFile(d.docFile(ns))
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, &domain.BackendError{Op: "load", Detail: d.docFile(ns), Err: err}
		}
	case !os.IsNotExist(err):
		return nil, &domain.BackendError{Op: "load", Err: err}
	}
	d.cache[ns] = doc
	return doc, nil
}

// saveDoc writes the document atomically. Caller holds mu.
func (d *Driver) saveDoc(ns domain.Namespace) error {
	doc := d.cache[ns]
	path := d.docFile(ns)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &domain.BackendError{Op: "save", Err: err}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return &domain.BackendError{Op: "save", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return &domain.BackendError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &domain.BackendError{Op: "save", Err: err}
	}
	return nil
}

// Get retrieves the value stored at the exact identifier path.
func (d *Driver) Get(_ context.Context, id domain.Identifier) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, err := d.loadDoc(nsOf(id))
	if err != nil {
		return nil, err
	}
	value, err := doctree.Get(doc, docPath(id))
	if err != nil {
		return nil, err
	}
	return doctree.Normalize(value)
}

// Set fully replaces the value at the identifier and persists the
// owning document.
func (d *Driver) Set(_ context.Context, id domain.Identifier, value any) (any, error) {
	normalized, err := doctree.Normalize(value)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ns := nsOf(id)
	doc, err := d.loadDoc(ns)
	if err != nil {
		return nil, err
	}
	if err := doctree.Set(doc, docPath(id), normalized); err != nil {
		return nil, err
	}
	if err := d.saveDoc(ns); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Clear deletes the value or subtree at the identifier.
func (d *Driver) Clear(_ context.Context, id domain.Identifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ns := nsOf(id)
	doc, err := d.loadDoc(ns)
	if err != nil {
		return err
	}
	doctree.Remove(doc, docPath(id))
	return d.saveDoc(ns)
}

// Increment atomically adds delta to the numeric value at the identifier.
func (d *Driver) Increment(ctx context.Context, id domain.Identifier, delta, def float64) (float64, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	current := def
	stored, err := d.Get(ctx, id)
	switch {
	case err == nil:
		n, ok := doctree.Number(stored)
		if !ok {
			return 0, fmt.Errorf("%w: %s holds %T, not a number", domain.ErrTypeMismatch, id, stored)
		}
		current = n
	case !errors.Is(err, domain.ErrNotFound):
		return 0, err
	}

	next := current + delta
	if _, err := d.Set(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Toggle atomically flips or sets the boolean value at the identifier.
func (d *Driver) Toggle(ctx context.Context, id domain.Identifier, value *bool, def bool) (bool, error) {
	unlock := d.locks.Lock(storage.DocKey(id))
	defer unlock()

	// The stored value must be boolean (or absent) for either branch.
	current := def
	stored, err := d.Get(ctx, id)
	switch {
	case err == nil:
		b, ok := doctree.Bool(stored)
		if !ok {
			return false, fmt.Errorf("%w: %s holds %T, not a boolean", domain.ErrTypeMismatch, id, stored)
		}
		current = b
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	next := !current
	if value != nil {
		next = *value
	}

	if _, err := d.Set(ctx, id, next); err != nil {
		return false, err
	}
	return next, nil
}

// ImportData migrates whole-category payloads into this driver.
func (d *Driver) ImportData(ctx context.Context, ns domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error {
	return storage.ImportData(ctx, d, ns, rows, registry)
}

// DeleteAllData removes every stored document beneath the data directory.
func (d *Driver) DeleteAllData(_ context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return &domain.BackendError{Op: "delete_all", Err: err}
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(d.baseDir, entry.Name())); err != nil {
			return &domain.BackendError{Op: "delete_all", Err: err}
		}
	}
	d.cache = make(map[domain.Namespace]map[string]any)
	return nil
}

// Namespaces enumerates stored (namespace, instance) pairs by walking
// the data directory.
func (d *Driver) Namespaces(_ context.Context) iter.Seq2[domain.Namespace, error] {
	return func(yield func(domain.Namespace, error) bool) {
		names, err := os.ReadDir(d.baseDir)
		if err != nil {
			yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Err: err})
			return
		}
		sort.Slice(names, func(a, b int) bool { return names[a].Name() < names[b].Name() })
		for _, nameEntry := range names {
			if !nameEntry.IsDir() {
				continue
			}
			instances, err := os.ReadDir(filepath.Join(d.baseDir, nameEntry.Name()))
			if err != nil {
				yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Err: err})
				return
			}
			for _, instEntry := range instances {
				if !instEntry.IsDir() {
					continue
				}
				ns := domain.Namespace{Name: nameEntry.Name(), InstanceID: instEntry.Name()}
				if !yield(ns, nil) {
					return
				}
			}
		}
	}
}

// Close stops the watcher, if any.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.watcher != nil {
		close(d.done)
		return d.watcher.Close()
	}
	return nil
}

// watch drops cached documents whose backing file changed on disk. Our
// own atomic saves also land here; re-reading a freshly written file on
// the next access is harmless.
func (d *Driver) watch() {
	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			d.handleEvent(event.Name)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// handleEvent maps a changed path back to its (namespace, instance)
// pair and evicts the cached document. New namespace directories are
// added to the watch set so their documents are tracked too.
func (d *Driver) handleEvent(path string) {
	rel, err := filepath.Rel(d.baseDir, path)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	d.mu.Lock()
	defer d.mu.Unlock()

	switch len(parts) {
	case 1:
		// A namespace directory appeared; watch it for instance changes.
		if info, err := os.Stat(path); err == nil && info.IsDir() && d.watcher != nil {
			_ = d.watcher.Add(path)
		}
	case 2:
		if info, err := os.Stat(path); err == nil && info.IsDir() && d.watcher != nil {
			_ = d.watcher.Add(path)
		}
	case 3:
		if parts[2] != settingsFile {
			return
		}
		ns := domain.Namespace{Name: parts[0], InstanceID: parts[1]}
		delete(d.cache, ns)
		logger.Debug("reloading %s/%s after external change", ns.Name, ns.InstanceID)
	}
}
