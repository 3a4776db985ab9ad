package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

const (
	OffensiveFile = "offensive_cache.json"
	DefensiveFile = "defensive_cache.json"
	InfoFile      = "cache_info.json"
)

// ErrCacheMissing is returned when one of the cache files does not exist.
var ErrCacheMissing = errors.New("cache file missing")

// bare NaN tokens left behind by older pandas-based dumps
var nanToken = regexp.MustCompile(`:\s*(NaN|-?Infinity)\b`)

// FileStore persists snapshots as the three flat JSON dumps.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

// Dir returns the directory the cache files live in
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes all three cache files. Each file is replaced atomically.
func (s *FileStore) Save(snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("nil snapshot")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	offensive, err := encodeTables(snapshot.Offensive)
	if err != nil {
		return fmt.Errorf("encoding offensive tables: %w", err)
	}
	if err := s.writeFile(OffensiveFile, offensive); err != nil {
		return err
	}

	defensive, err := encodeTables(snapshot.Defensive)
	if err != nil {
		return fmt.Errorf("encoding defensive tables: %w", err)
	}
	if err := s.writeFile(DefensiveFile, defensive); err != nil {
		return err
	}

	info, err := json.MarshalIndent(snapshot.Info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache info: %w", err)
	}
	return s.writeFile(InfoFile, info)
}

// Load reads a snapshot from disk. A missing file wraps ErrCacheMissing.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offensiveData, err := s.readFile(OffensiveFile)
	if err != nil {
		return nil, err
	}
	offensive, err := decodeTables[OffensiveRecord](offensiveData)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", OffensiveFile, err)
	}

	defensiveData, err := s.readFile(DefensiveFile)
	if err != nil {
		return nil, err
	}
	defensive, err := decodeTables[DefensiveRecord](defensiveData)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", DefensiveFile, err)
	}

	info, err := s.Info()
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Offensive: offensive,
		Defensive: defensive,
		Info:      info,
	}, nil
}

// Info reads only cache_info.json
func (s *FileStore) Info() (CacheInfo, error) {
	var info CacheInfo

	data, err := s.readFile(InfoFile)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("decoding %s: %w", InfoFile, err)
	}
	return info, nil
}

func (s *FileStore) readFile(name string) ([]byte, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return nanToken.ReplaceAll(data, []byte(": null")), nil
}

func (s *FileStore) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// encodeTables writes tables as one JSON object keyed by play type,
// keeping the slice order as the key order.
func encodeTables[T any](tables []PlayTypeTable[T]) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	for i, table := range tables {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(table.PlayType)
		if err != nil {
			return nil, err
		}

		rows := table.Rows
		if rows == nil {
			rows = []T{}
		}
		value, err := json.MarshalIndent(rows, "  ", "  ")
		if err != nil {
			return nil, err
		}

		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}

	if len(tables) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// decodeTables reads a JSON object of play type -> rows preserving key order.
func decodeTables[T any](data []byte) ([]PlayTypeTable[T], error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var tables []PlayTypeTable[T]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		playType, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected play type key, got %v", tok)
		}

		var rows []T
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("play type %q: %w", playType, err)
		}
		tables = append(tables, PlayTypeTable[T]{PlayType: playType, Rows: rows})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return tables, nil
}
