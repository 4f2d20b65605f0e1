package store

import (
	"fmt"
	"os"
	"path/filepath"

	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"

	"gopkg.in/yaml.v3"
)

// State file names inside the state directory.
const (
	TripsFile   = "trips.yaml"
	PendingFile = "pending.yaml"
	ActiveFile  = "active.yaml"
)

// FileStore keeps state in memory and rewrites three YAML files on every change.
// A missing or corrupt file loads as empty state.
type FileStore struct {
	*MemoryStore
	dir    string
	logger logging.Logger
}

type tripsDocument struct {
	Trips []models.Trip `yaml:"trips"`
}

// NewFileStore opens (creating if needed) the state directory and loads it.
func NewFileStore(dir string, opts Options, logger logging.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating state directory: %w", err)
	}

	fs := &FileStore{
		MemoryStore: NewMemoryStore(opts),
		dir:         dir,
		logger:      logger,
	}
	fs.load()
	fs.onChange = fs.flush
	return fs, nil
}

// Dir returns the state directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dir, name)
}

func (fs *FileStore) load() {
	var trips tripsDocument
	if fs.readYAML(TripsFile, &trips) {
		for _, t := range trips.Trips {
			fs.trips[t.Name] = t
		}
	}

	var pending map[string]models.PendingRecord
	if fs.readYAML(PendingFile, &pending) {
		for chatID, rec := range pending {
			p, err := rec.Pending()
			if err != nil {
				fs.logger.WithError(err).Warn("Dropping unreadable pending confirmation",
					logging.F(logging.FieldChatID, chatID))
				continue
			}
			fs.pending[chatID] = p
		}
	}

	var active map[string]string
	if fs.readYAML(ActiveFile, &active) {
		for chatID, name := range active {
			fs.active[chatID] = name
		}
	}

	fs.logger.Debug("Loaded state",
		logging.F(logging.FieldPath, fs.dir),
		logging.F(logging.FieldCount, len(fs.trips)))
}

// readYAML decodes one state file. It reports false for a missing or corrupt file.
func (fs *FileStore) readYAML(name string, out interface{}) bool {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.WithError(err).Warn("Error reading state file", logging.F(logging.FieldPath, fs.path(name)))
		}
		return false
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		fs.logger.WithError(err).Warn("Corrupt state file, starting empty", logging.F(logging.FieldPath, fs.path(name)))
		return false
	}
	return true
}

// flush runs with the MemoryStore lock held.
func (fs *FileStore) flush() error {
	doc := tripsDocument{Trips: fs.sortedTrips()}
	if err := fs.writeYAML(TripsFile, doc); err != nil {
		return err
	}

	pending := make(map[string]models.PendingRecord, len(fs.pending))
	for chatID, p := range fs.pending {
		pending[chatID] = p.Record()
	}
	if err := fs.writeYAML(PendingFile, pending); err != nil {
		return err
	}

	return fs.writeYAML(ActiveFile, fs.active)
}

// writeYAML replaces a state file through a temporary file and rename.
func (fs *FileStore) writeYAML(name string, value interface{}) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(fs.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error closing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, fs.path(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error replacing %s: %w", name, err)
	}
	return nil
}
