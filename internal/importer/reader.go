package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// rowBuffer is the number of rows read from a row group per call.
const rowBuffer = 1000

// PlaceCallback receives each place with its file index and row within that file.
// Returning false stops the read.
type PlaceCallback func(p *Place, fileIndex, row int) bool

// ParquetReader streams places from the *.parquet files of a directory in name order.
type ParquetReader struct {
	files []string
}

// NewParquetReader scans dir for parquet files.
func NewParquetReader(dir string) (*ParquetReader, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("glob parquet files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet files found in %s", dir)
	}
	sort.Strings(files)
	return &ParquetReader{files: files}, nil
}

// Files returns the parquet files in read order.
func (r *ParquetReader) Files() []string { return r.files }

// ReadPlaces reads places starting at fileIndex/rowOffset. maxRows=0 means no limit.
func (r *ParquetReader) ReadPlaces(fileIndex, rowOffset, maxRows int, cb PlaceCallback) error {
	remaining := maxRows

	for fi := fileIndex; fi < len(r.files); fi++ {
		skip := 0
		if fi == fileIndex {
			skip = rowOffset
		}

		stopped := false
		n, err := readFile(r.files[fi], skip, remaining, func(p *Place, row int) bool {
			if !cb(p, fi, row) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(r.files[fi]), err)
		}
		if stopped {
			return nil
		}

		if maxRows > 0 {
			remaining -= n
			if remaining <= 0 {
				return nil
			}
		}
	}
	return nil
}

// placeColumns holds leaf column indexes resolved by name; -1 when absent.
type placeColumns struct {
	fsqPlaceID     int
	name           int
	latitude       int
	longitude      int
	address        int
	locality       int
	region         int
	country        int
	categoryLabels int
	dateClosed     int
}

func resolvePlaceColumns(pf *parquet.File) placeColumns {
	cols := placeColumns{
		fsqPlaceID: -1, name: -1, latitude: -1, longitude: -1,
		address: -1, locality: -1, region: -1, country: -1,
		categoryLabels: -1, dateClosed: -1,
	}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "fsq_place_id":
			cols.fsqPlaceID = i
		case "name":
			cols.name = i
		case "latitude":
			cols.latitude = i
		case "longitude":
			cols.longitude = i
		case "address":
			cols.address = i
		case "locality":
			cols.locality = i
		case "region":
			cols.region = i
		case "country":
			cols.country = i
		case "fsq_category_labels":
			cols.categoryLabels = i
		case "date_closed":
			cols.dateClosed = i
		}
	}
	return cols
}

// readFile reads one file, skipping the first skip rows. Whole row groups
// inside the skipped range are not decoded.
func readFile(path string, skip, maxRows int, cb func(p *Place, row int) bool) (int, error) {
	h, err := openParquet(path)
	if err != nil {
		return 0, err
	}
	defer h.Close()

	cols := resolvePlaceColumns(h.pf)
	row := 0
	read := 0
	buf := make([]parquet.Row, rowBuffer)

	for _, rg := range h.pf.RowGroups() {
		rgRows := int(rg.NumRows())
		if row+rgRows <= skip {
			row += rgRows
			continue
		}

		rows := parquet.NewRowGroupReader(rg)
		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				if row < skip {
					row++
					continue
				}
				place := rowToPlace(buf[i], cols)
				if !cb(&place, row) {
					return read, nil
				}
				row++
				read++
				if maxRows > 0 && read >= maxRows {
					return read, nil
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return read, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return read, nil
}

func rowToPlace(row parquet.Row, cols placeColumns) Place {
	var p Place
	optString := func(v parquet.Value) *string {
		if v.IsNull() {
			return nil
		}
		s := v.String()
		return &s
	}
	optDouble := func(v parquet.Value) *float64 {
		if v.IsNull() {
			return nil
		}
		f := v.Double()
		return &f
	}

	for _, v := range row {
		switch v.Column() {
		case cols.fsqPlaceID:
			p.FSQPlaceID = v.String()
		case cols.name:
			p.Name = v.String()
		case cols.latitude:
			p.Latitude = optDouble(v)
		case cols.longitude:
			p.Longitude = optDouble(v)
		case cols.address:
			p.Address = optString(v)
		case cols.locality:
			p.Locality = optString(v)
		case cols.region:
			p.Region = optString(v)
		case cols.country:
			p.Country = optString(v)
		case cols.categoryLabels:
			if !v.IsNull() {
				p.CategoryLabels = append(p.CategoryLabels, v.String())
			}
		case cols.dateClosed:
			p.DateClosed = optString(v)
		}
	}
	return p
}

// parquetHandle wraps parquet.File and the underlying os.File for cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
