package metrics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RecordStore persists per-year records positionally by Monte Carlo index
// within each (run, year) and reads them back in iteration order.
type RecordStore interface {
	Put(rec Record) error
	Records(run, year int) ([]Record, error)
	Remove(run, year int) error
}

type storeKey struct{ run, year int }

// MemoryStore keeps records in memory. It is safe for concurrent use.
type MemoryStore struct {
	iterations int

	mu   sync.Mutex
	recs map[storeKey][]Record
	set  map[storeKey][]bool
}

// NewMemoryStore creates a store for the given Monte Carlo iteration count.
func NewMemoryStore(iterations int) *MemoryStore {
	return &MemoryStore{
		iterations: iterations,
		recs:       make(map[storeKey][]Record),
		set:        make(map[storeKey][]bool),
	}
}

// Put stores rec in its Monte Carlo slot.
func (s *MemoryStore) Put(rec Record) error {
	if rec.MonteCarlo < 0 || rec.MonteCarlo >= s.iterations {
		return fmt.Errorf("put record: monte carlo %d outside [0,%d)", rec.MonteCarlo, s.iterations)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey{rec.Run, rec.Year}
	if _, ok := s.recs[k]; !ok {
		s.recs[k] = make([]Record, s.iterations)
		s.set[k] = make([]bool, s.iterations)
	}
	s.recs[k][rec.MonteCarlo] = rec
	s.set[k][rec.MonteCarlo] = true
	return nil
}

// Records returns the stored records of (run, year) in iteration order.
func (s *MemoryStore) Records(run, year int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey{run, year}
	recs, ok := s.recs[k]
	if !ok {
		return nil, fmt.Errorf("records run %d year %d: %w", run, year, os.ErrNotExist)
	}
	out := make([]Record, 0, len(recs))
	for i, r := range recs {
		if s.set[k][i] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Remove discards the records of (run, year).
func (s *MemoryStore) Remove(run, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, storeKey{run, year})
	delete(s.set, storeKey{run, year})
	return nil
}

// diskRecord is the fixed little-endian layout of one record on disk.
type diskRecord struct {
	Run        int32
	MonteCarlo int32
	Year       int32
	_          int32
	Values     [numValues]float64
}

var diskRecordSize = binary.Size(diskRecord{})

// FileStore writes one file per (run, year), grow_<run>_<year>.log, holding
// one fixed-size record per Monte Carlo iteration.
type FileStore struct {
	dir        string
	iterations int
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, iterations int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &FileStore{dir: dir, iterations: iterations}, nil
}

func (s *FileStore) path(run, year int) string {
	return filepath.Join(s.dir, fmt.Sprintf("grow_%d_%d.log", run, year))
}

// Put writes rec at its Monte Carlo slot. Iteration 0 creates the file with
// every slot pre-filled by rec so later iterations can overwrite in place.
func (s *FileStore) Put(rec Record) error {
	if rec.MonteCarlo < 0 || rec.MonteCarlo >= s.iterations {
		return fmt.Errorf("put record: monte carlo %d outside [0,%d)", rec.MonteCarlo, s.iterations)
	}
	d := toDisk(rec)
	p := s.path(rec.Run, rec.Year)

	if rec.MonteCarlo == 0 {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("create record file: %w", err)
		}
		for range s.iterations {
			if err := binary.Write(f, binary.LittleEndian, d); err != nil {
				f.Close()
				return fmt.Errorf("write record: %w", err)
			}
		}
		return f.Close()
	}

	f, err := os.OpenFile(p, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	w := io.NewOffsetWriter(f, int64(rec.MonteCarlo*diskRecordSize))
	if err := binary.Write(w, binary.LittleEndian, d); err != nil {
		f.Close()
		return fmt.Errorf("write record: %w", err)
	}
	return f.Close()
}

// Records reads every record of (run, year) in file order.
func (s *FileStore) Records(run, year int) ([]Record, error) {
	f, err := os.Open(s.path(run, year))
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	var out []Record
	for {
		var d diskRecord
		err := binary.Read(f, binary.LittleEndian, &d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(out), err)
		}
		if len(out) >= s.iterations {
			return nil, fmt.Errorf("record file run %d year %d holds more than %d iterations", run, year, s.iterations)
		}
		out = append(out, fromDisk(d))
	}
	return out, nil
}

// Remove deletes the file of (run, year).
func (s *FileStore) Remove(run, year int) error {
	if err := os.Remove(s.path(run, year)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove record file: %w", err)
	}
	return nil
}

func toDisk(r Record) diskRecord {
	d := diskRecord{Run: int32(r.Run), MonteCarlo: int32(r.MonteCarlo), Year: int32(r.Year)}
	for i, f := range r.Values.fields() {
		d.Values[i] = *f
	}
	return d
}

func fromDisk(d diskRecord) Record {
	r := Record{Run: int(d.Run), MonteCarlo: int(d.MonteCarlo), Year: int(d.Year)}
	for i, f := range r.Values.fields() {
		*f = d.Values[i]
	}
	return r
}
