package relational

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/ojpb/relational/artifact"
	"github.com/ojpb/relational/codec"
	"github.com/ojpb/relational/model"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the checkpoint payload compression scheme.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd uses zstandard (better ratio, good for cold storage).
	CompressionZstd
	// CompressionLz4 uses LZ4 (faster, good for frequent checkpointing).
	CompressionLz4
)

// String returns the stable name of the compression scheme.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLz4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// checkpointMagic identifies checkpoint streams (ASCII "RELCKPT1").
var checkpointMagic = [8]byte{'R', 'E', 'L', 'C', 'K', 'P', 'T', '1'}

const checkpointVersion uint16 = 1

// ErrInvalidCheckpoint is returned when a checkpoint stream is corrupt or
// was written by an unsupported version.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// checkpointState is the serialized engine state. Metric values use
// pointers so NaN entries (undefined hit ratios) survive JSON, which has
// no NaN literal; nil encodes NaN.
type checkpointState struct {
	Iteration       int                            `json:"iteration"`
	Performances    map[string]map[string]*float64 `json:"performances"`
	LabelledBy      map[int]string                 `json:"labelled_by"`
	LabelledIndices []int                          `json:"labelled_indices"`
}

// Checkpoint is a restorable snapshot of the engine state: iteration
// counter, performance history, labelling provenance, and the labelled
// index set.
type Checkpoint struct {
	Iteration       int
	Performances    map[string]model.Record
	LabelledBy      map[int]string
	LabelledIndices []int
}

func encodeRecord(rec model.Record) map[string]*float64 {
	out := make(map[string]*float64, len(rec))
	for name, value := range rec {
		if math.IsNaN(value) {
			out[name] = nil
			continue
		}
		v := value
		out[name] = &v
	}
	return out
}

func decodeRecord(enc map[string]*float64) model.Record {
	rec := make(model.Record, len(enc))
	for name, value := range enc {
		if value == nil {
			rec[name] = math.NaN()
			continue
		}
		rec[name] = *value
	}
	return rec
}

// SaveCheckpoint writes a snapshot of the engine state to w, using the
// configured codec and compression. The stream is self-describing: loading
// does not need to know how it was written.
func (s *Strategy) SaveCheckpoint(w io.Writer) error {
	state := checkpointState{
		Iteration:       s.iteration,
		Performances:    make(map[string]map[string]*float64),
		LabelledBy:      s.LabelledBy(),
		LabelledIndices: s.dm.LabelledIndices(),
	}
	for key, rec := range s.tracker.performances() {
		state.Performances[key] = encodeRecord(rec)
	}

	payload, err := s.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("relational: encode checkpoint: %w", err)
	}

	payload, err = compress(payload, s.compression)
	if err != nil {
		return fmt.Errorf("relational: compress checkpoint: %w", err)
	}

	if _, err := w.Write(checkpointMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, checkpointVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(s.compression)); err != nil {
		return err
	}
	codecName := []byte(s.codec.Name())
	if err := binary.Write(w, binary.LittleEndian, uint8(len(codecName))); err != nil {
		return err
	}
	if _, err := w.Write(codecName); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}

	return nil
}

// SaveCheckpointFile writes a checkpoint to the given file path.
func (s *Strategy) SaveCheckpointFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.SaveCheckpoint(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// SaveCheckpointTo writes a checkpoint to an artifact store under the
// given name.
func (s *Strategy) SaveCheckpointTo(ctx context.Context, store artifact.Store, name string) error {
	var buf bytes.Buffer
	if err := s.SaveCheckpoint(&buf); err != nil {
		return err
	}
	return store.Put(ctx, name, buf.Bytes())
}

// LoadCheckpoint reads a checkpoint stream written by SaveCheckpoint.
func LoadCheckpoint(r io.Reader) (*Checkpoint, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	if magic != checkpointMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidCheckpoint)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	if version != checkpointVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCheckpoint, version)
	}

	var compression uint8
	if err := binary.Read(r, binary.LittleEndian, &compression); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	if Compression(compression) > CompressionLz4 {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidCheckpoint, compression)
	}

	var nameLen uint8
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	codecName := make([]byte, nameLen)
	if _, err := io.ReadFull(r, codecName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	c, ok := codec.ByName(string(codecName))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidCheckpoint, codecName)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload, err = decompress(payload, Compression(compression))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}

	var state checkpointState
	if err := c.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}

	cp := &Checkpoint{
		Iteration:       state.Iteration,
		Performances:    make(map[string]model.Record, len(state.Performances)),
		LabelledBy:      state.LabelledBy,
		LabelledIndices: state.LabelledIndices,
	}
	if cp.LabelledBy == nil {
		cp.LabelledBy = make(map[int]string)
	}
	for key, rec := range state.Performances {
		cp.Performances[key] = decodeRecord(rec)
	}

	return cp, nil
}

// LoadCheckpointFile reads a checkpoint from the given file path.
func LoadCheckpointFile(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return LoadCheckpoint(f)
}

// LoadCheckpointFrom reads a checkpoint from an artifact store.
func LoadCheckpointFrom(ctx context.Context, store artifact.Store, name string) (*Checkpoint, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return LoadCheckpoint(bytes.NewReader(data))
}

// RestoreCheckpoint applies a checkpoint to the engine: the labelled set is
// replayed into the data manager, and the iteration counter, performance
// history, and labelling provenance are replaced. The strategy must have
// been constructed over the same dataset splits the checkpoint was taken
// from.
func (s *Strategy) RestoreCheckpoint(cp *Checkpoint) error {
	var toLabel []int
	for _, i := range cp.LabelledIndices {
		if s.dm.IsUnlabelled(i) {
			toLabel = append(toLabel, i)
		}
	}
	if len(toLabel) > 0 {
		if err := s.dm.UpdateLabels(toLabel); err != nil {
			return fmt.Errorf("relational: restore labelled set: %w", err)
		}
	}

	s.iteration = cp.Iteration
	s.tracker = newTracker()
	for key, rec := range cp.Performances {
		if key == FullKey {
			s.tracker.recordFull(rec.Clone())
			continue
		}
		iteration, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("%w: performance key %q", ErrInvalidCheckpoint, key)
		}
		s.tracker.recordIteration(iteration, rec.Clone())
	}
	for i, tag := range cp.LabelledBy {
		s.tracker.labelledBy[i] = tag
	}

	return nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer func() { _ = enc.Close() }()
		return enc.EncodeAll(data, nil), nil
	case CompressionLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLz4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
}
