package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// File format: magic, version, dimension and row count in the header,
// then row-major little-endian float32 data.
var fileMagic = [6]byte{'C', 'D', 'E', 'I', 'D', 'X'}

const fileVersion uint16 = 1

type fileHeader struct {
	Magic   [6]byte
	Version uint16
	Dim     uint32
	Rows    uint32
}

// Save writes the index and its ordered record ids as one unit. Both
// files are written to temporaries and renamed into place so concurrent
// readers never observe a partially written pair.
func Save(f *Flat, ids []int64, indexPath, idsPath string) error {
	if len(ids) != f.Len() {
		return fmt.Errorf("id count %d does not match index rows %d", len(ids), f.Len())
	}

	tmpIndex := indexPath + ".tmp"
	if err := writeIndexFile(f, tmpIndex); err != nil {
		return err
	}

	tmpIDs := idsPath + ".tmp"
	if err := writeIDsFile(ids, tmpIDs); err != nil {
		os.Remove(tmpIndex)
		return err
	}

	if err := os.Rename(tmpIndex, indexPath); err != nil {
		os.Remove(tmpIndex)
		os.Remove(tmpIDs)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	if err := os.Rename(tmpIDs, idsPath); err != nil {
		os.Remove(tmpIDs)
		return fmt.Errorf("failed to replace id file: %w", err)
	}
	return nil
}

func writeIndexFile(f *Flat, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	hdr := fileHeader{
		Magic:   fileMagic,
		Version: fileVersion,
		Dim:     uint32(f.dim),
		Rows:    uint32(len(f.rows)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	for _, row := range f.rows {
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write index row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Sync()
}

func writeIDsFile(ids []int64, path string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal ids: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads an index file and its ordered id file. Callers are expected
// to verify that the id count matches the row count; Load itself only
// fails on unreadable or malformed files.
func Load(indexPath, idsPath string) (*Flat, []int64, error) {
	f, err := readIndexFile(indexPath)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(idsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read id file: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, nil, fmt.Errorf("failed to parse id file: %w", err)
	}

	return f, ids, nil
}

func readIndexFile(path string) (*Flat, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer in.Close()

	r := bufio.NewReader(in)
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	if hdr.Magic != fileMagic {
		return nil, fmt.Errorf("not an index file: %s", path)
	}
	if hdr.Version != fileVersion {
		return nil, fmt.Errorf("unsupported index version %d", hdr.Version)
	}

	f := NewFlat(int(hdr.Dim))
	for i := uint32(0); i < hdr.Rows; i++ {
		row := make([]float32, hdr.Dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("failed to read index row %d: %w", i, err)
		}
		f.rows = append(f.rows, row)
	}
	return f, nil
}
