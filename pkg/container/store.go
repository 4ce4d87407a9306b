package container

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openradar/darnio/pkg/borealis"
	"github.com/openradar/darnio/pkg/models"
	"github.com/openradar/darnio/pkg/storage"
)

const objectSuffix = ".arrow"

// Store reads and writes record sets through a storage backend. One
// columnar set is one object; a record-oriented set is one object per
// record, named by its millisecond timestamp key.
type Store struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewStore creates a store over the given backend.
func NewStore(backend storage.Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "container").Logger(),
	}
}

// WriteColumnar persists one columnar set at the given object path.
func (s *Store) WriteColumnar(ctx context.Context, objectPath string, set *models.Record) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, objectPath, data); err != nil {
		return fmt.Errorf("container: write %s: %w", objectPath, err)
	}
	s.logger.Debug().
		Str("path", objectPath).
		Int("fields", set.Len()).
		Int("size", len(data)).
		Msg("Wrote columnar set")
	return nil
}

// ReadColumnar loads one columnar set from the given object path.
func (s *Store) ReadColumnar(ctx context.Context, objectPath string) (*models.Record, error) {
	data, err := s.backend.Read(ctx, objectPath)
	if err != nil {
		return nil, fmt.Errorf("container: read %s: %w", objectPath, err)
	}
	return Decode(data)
}

// WriteSite persists a record-oriented set under the given prefix, one
// object per record keyed by timestamp.
func (s *Store) WriteSite(ctx context.Context, prefix string, set borealis.SiteSet) error {
	for _, sr := range set {
		data, err := Encode(sr.Record)
		if err != nil {
			return err
		}
		objectPath := path.Join(prefix, sr.Key+objectSuffix)
		if err := s.backend.Write(ctx, objectPath, data); err != nil {
			return fmt.Errorf("container: write %s: %w", objectPath, err)
		}
	}
	s.logger.Debug().
		Str("prefix", prefix).
		Int("records", len(set)).
		Msg("Wrote site set")
	return nil
}

// ReadSite loads every record object under the prefix, ordered by
// timestamp key.
func (s *Store) ReadSite(ctx context.Context, prefix string) (borealis.SiteSet, error) {
	paths, err := s.backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("container: list %s: %w", prefix, err)
	}

	type keyed struct {
		key  string
		ms   int64
		path string
	}
	var objects []keyed
	for _, p := range paths {
		base := path.Base(p)
		if !strings.HasSuffix(base, objectSuffix) {
			continue
		}
		key := strings.TrimSuffix(base, objectSuffix)
		ms, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		objects = append(objects, keyed{key: key, ms: ms, path: p})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ms < objects[j].ms })

	set := make(borealis.SiteSet, 0, len(objects))
	for _, obj := range objects {
		data, err := s.backend.Read(ctx, obj.path)
		if err != nil {
			return nil, fmt.Errorf("container: read %s: %w", obj.path, err)
		}
		rec, err := Decode(data)
		if err != nil {
			return nil, err
		}
		set = append(set, borealis.SiteRecord{Key: obj.key, Record: rec})
	}
	return set, nil
}
