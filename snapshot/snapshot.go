package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/Masterminds/semver"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/errors"
	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/scopeinfo"
)

// FormatVersion is written into every snapshot.
const FormatVersion = "1.0.0"

// compatibleFormats is the range of snapshot formats this build can restore.
const compatibleFormats = ">= 1.0.0, < 2.0.0"

// Snapshot is a persisted heap image with the descriptors it was saved for.
type Snapshot struct {
	Name      string `boltholdKey:"Name"`
	Format    string
	Roots     []uint32
	Scopes    []uint32
	Image     []byte
	CreatedAt int64
	Top       uint32
}

// Info summarizes a snapshot without its image.
type Info struct {
	CreatedAt time.Time
	Name      string
	Format    string
	Size      int
	Scopes    int
}

// Store keeps snapshots in a bbolt file.
type Store struct {
	db *bolthold.Store
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bolthold.Open(path, 0o644, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout:      5 * time.Second,
			NoGrowSync:   bbolt.DefaultOptions.NoGrowSync,
			FreelistType: bbolt.DefaultOptions.FreelistType,
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidInput, err, "open "+path)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckFormat reports whether a snapshot format can be restored.
func CheckFormat(format string) error {
	v, err := semver.NewVersion(format)
	if err != nil {
		return errors.Incompatible(errors.PhaseSnapshot, "unparseable format "+format, err)
	}
	constraint, err := semver.NewConstraint(compatibleFormats)
	if err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "format constraint")
	}
	if !constraint.Check(v) {
		return errors.Incompatible(errors.PhaseSnapshot, "format "+format+" outside "+compatibleFormats, nil)
	}
	return nil
}

// Save writes the heap image under name, replacing any previous snapshot.
// scopes are the entry descriptors Load hands back.
func (s *Store) Save(ctx context.Context, name string, h *heap.Heap, scopes ...*scopeinfo.ScopeInfo) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseSnapshot, "snapshot name is empty")
	}
	image, err := h.Image(ctx)
	if err != nil {
		return err
	}

	snap := &Snapshot{
		Name:      name,
		Format:    FormatVersion,
		Top:       h.Top(),
		Image:     image,
		CreatedAt: time.Now().Unix(),
	}
	for _, r := range h.Roots() {
		snap.Roots = append(snap.Roots, uint32(r))
	}
	for _, si := range scopes {
		if si.Heap() != h {
			return errors.InvalidInput(errors.PhaseSnapshot, "scope info belongs to another heap")
		}
		snap.Scopes = append(snap.Scopes, uint32(si.Ref()))
	}

	if err := s.db.Upsert(name, snap); err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "write "+name)
	}
	Logger().Info("snapshot saved",
		zap.String("name", name),
		zap.Int("bytes", len(image)),
		zap.Int("scopes", len(scopes)))
	return nil
}

func (s *Store) get(ctx context.Context, name string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	if err := s.db.Get(name, snap); err != nil {
		if stderrors.Is(err, bolthold.ErrNotFound) {
			return nil, errors.NotFound(errors.PhaseSnapshot, "snapshot", name)
		}
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "read "+name)
	}
	return snap, nil
}

// Load restores the heap saved under name into a fresh slice-backed heap and
// returns its entry descriptors.
func (s *Store) Load(ctx context.Context, name string) (*heap.Heap, []*scopeinfo.ScopeInfo, error) {
	snap, err := s.get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if err := CheckFormat(snap.Format); err != nil {
		return nil, nil, err
	}

	roots := make([]heap.Value, len(snap.Roots))
	for i, r := range snap.Roots {
		roots[i] = heap.Value(r)
	}
	h, err := heap.Restore(snap.Image, snap.Top, roots)
	if err != nil {
		return nil, nil, err
	}

	scopes := make([]*scopeinfo.ScopeInfo, 0, len(snap.Scopes))
	for _, ref := range snap.Scopes {
		if !h.Holds(heap.Value(ref)) {
			return nil, nil, errors.InvalidData(errors.PhaseSnapshot, []string{"scopes"}, "entry descriptor outside the heap")
		}
		si, err := scopeinfo.Cast(h, heap.Value(ref))
		if err != nil {
			return nil, nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "entry descriptor")
		}
		scopes = append(scopes, si)
	}

	Logger().Debug("snapshot loaded", zap.String("name", name), zap.String("format", snap.Format))
	return h, scopes, nil
}

// List returns every snapshot sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var snaps []Snapshot
	if err := s.db.Find(&snaps, bolthold.Where("Name").Ne("").SortBy("Name")); err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "list snapshots")
	}

	out := make([]Info, len(snaps))
	for i, snap := range snaps {
		out[i] = Info{
			Name:      snap.Name,
			Format:    snap.Format,
			Size:      len(snap.Image),
			Scopes:    len(snap.Scopes),
			CreatedAt: time.Unix(snap.CreatedAt, 0),
		}
	}
	return out, nil
}

// Delete removes the snapshot saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.get(ctx, name); err != nil {
		return err
	}
	if err := s.db.Delete(name, &Snapshot{}); err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "delete "+name)
	}
	return nil
}
