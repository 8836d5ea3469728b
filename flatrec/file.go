package flatrec

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/aglyzov/go-ipdb/interval"
)

// WriteTree streams a store to w record by record in ascending order and
// returns the number of bytes written.
func (c *Codec[K]) WriteTree(w io.Writer, t *interval.Tree[K]) (int64, error) {
	var (
		bw  = bufio.NewWriter(w)
		rec = make([]byte, c.RecordSize())
		n   int64
		err error
	)

	t.Iter(func(r interval.Range[K]) bool {
		c.PutRecord(rec, r)

		var m int
		m, err = bw.Write(rec)
		n += int64(m)

		return err == nil
	})

	if err != nil {
		return n, err
	}

	return n, bw.Flush()
}

// ReadRecords reads and decodes everything left in r.
func (c *Codec[K]) ReadRecords(r io.Reader) ([]interval.Range[K], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

// Save writes a store into a file, replacing it.
func (c *Codec[K]) Save(path string, t *interval.Tree[K]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := c.WriteTree(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

// Load reads all records of a file.
func (c *Codec[K]) Load(path string) ([]interval.Range[K], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	records, err := c.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return records, nil
}
