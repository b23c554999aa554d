// Package store keeps customer records in a flat CSV file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"

	"github.com/gocarina/gocsv"
)

var ErrDuplicateCustomer = errors.New("DUPLICATE_CUSTOMER")

func init() {
	// Older exports label the limit column "PreApprovedLimit(₹)".
	gocsv.SetHeaderNormalizer(func(h string) string {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if i := strings.Index(h, "("); i > 0 {
			h = strings.TrimSpace(h[:i])
		}
		return h
	})
}

// CustomerStore holds every record in memory and rewrites the whole file on
// each Create.
//
// WARNING: the file has a single-writer assumption. Two processes sharing one
// path will silently drop each other's new customers (last write wins). The
// mutex only serialises callers inside this process.
type CustomerStore struct {
	mu      sync.RWMutex
	path    string
	records []models.CustomerRecord
	index   map[string]int
	log     logger.Logger
}

// Open loads path wholesale. A missing or empty file yields an empty store;
// nothing is written until the first Create.
func Open(path string, log logger.Logger) (*CustomerStore, error) {
	s := &CustomerStore{
		path:  path,
		index: make(map[string]int),
		log:   log.WithFields(map[string]interface{}{"component": "customer-store", "path": path}),
	}

	records, err := readFile(path)
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(path, err)
	}

	for i, rec := range records {
		if _, dup := s.index[rec.CustomerID]; dup {
			s.log.Warn("duplicate customer id in file, keeping first row", map[string]interface{}{
				"customerId": rec.CustomerID,
				"row":        i + 2,
			})
			continue
		}
		s.index[rec.CustomerID] = len(s.records)
		s.records = append(s.records, rec)
	}

	s.log.Info("customer store loaded", map[string]interface{}{"records": len(s.records)})
	s.log.Warn("customer store assumes a single writer process; concurrent writers overwrite each other", nil)
	return s, nil
}

func readFile(path string) ([]models.CustomerRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []models.CustomerRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Get returns the record whose CustomerID equals id exactly.
func (s *CustomerStore) Get(id string) (models.CustomerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.CustomerRecord{}, false
	}
	return s.records[i], true
}

// Exists reports whether id is already taken.
func (s *CustomerStore) Exists(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Create appends rec and rewrites the file. Existing IDs are rejected and a
// failed write leaves the in-memory store unchanged.
func (s *CustomerStore) Create(rec models.CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[rec.CustomerID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCustomer, rec.CustomerID)
	}

	next := make([]models.CustomerRecord, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)

	if err := writeFile(s.path, next); err != nil {
		return apperrors.NewStoreWriteFailedError(s.path, err)
	}

	s.index[rec.CustomerID] = len(s.records)
	s.records = next

	s.log.Info("customer created", map[string]interface{}{
		"customerId": rec.CustomerID,
		"records":    len(s.records),
	})
	return nil
}

// All returns a copy of every record in file order.
func (s *CustomerStore) All() []models.CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CustomerRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *CustomerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *CustomerStore) Path() string { return s.path }

// writeFile replaces path with the full record set via a temp file in the
// same directory.
func writeFile(path string, records []models.CustomerRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".customers-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if len(records) == 0 {
		_, err = tmp.WriteString(strings.Join(models.CustomerHeader, ",") + "\n")
	} else {
		err = gocsv.MarshalFile(&records, tmp)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
