package importer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/venuedex/internal/domain"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// sliceSource serves places from memory as files of rows.
type sliceSource struct {
	files [][]Place
}

func (s *sliceSource) ReadPlaces(fileIndex, rowOffset, maxRows int, cb PlaceCallback) error {
	read := 0
	for fi := fileIndex; fi < len(s.files); fi++ {
		start := 0
		if fi == fileIndex {
			start = rowOffset
		}
		for row := start; row < len(s.files[fi]); row++ {
			p := s.files[fi][row]
			if !cb(&p, fi, row) {
				return nil
			}
			read++
			if maxRows > 0 && read >= maxRows {
				return nil
			}
		}
	}
	return nil
}

type recordingCreator struct {
	mu      sync.Mutex
	names   []string
	authors map[string]struct{}
	failFn  func(in domstore.Input) error
}

func (c *recordingCreator) Create(_ context.Context, in domstore.Input, authorID string) (domstore.Store, error) {
	if c.failFn != nil {
		if err := c.failFn(in); err != nil {
			return domstore.Store{}, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, in.Name)
	if c.authors == nil {
		c.authors = make(map[string]struct{})
	}
	c.authors[authorID] = struct{}{}
	return domstore.Store{}, nil
}

func (c *recordingCreator) sortedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.names...)
	sort.Strings(out)
	return out
}

func namedPlace(name string) Place {
	p := openPlace()
	p.Name = name
	return p
}

func TestIngester_ImportsAndSkips(t *testing.T) {
	closed := namedPlace("closed")
	closed.DateClosed = strPtr("2020-01-01")
	noCoords := namedPlace("nowhere")
	noCoords.Latitude = nil

	src := &sliceSource{files: [][]Place{
		{namedPlace("a"), closed, namedPlace("b")},
		{noCoords, namedPlace("c")},
	}}
	creator := &recordingCreator{}
	cursor, err := NewCursorTracker(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	res, err := NewIngester(creator, "importer", cursor).
		WithWorkers(3).WithBatchSize(2).WithMetrics(m).
		Run(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Processed != 3 || res.Skipped != 2 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := creator.sortedNames(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected created stores: %v", got)
	}
	if _, ok := creator.authors["importer"]; !ok || len(creator.authors) != 1 {
		t.Errorf("unexpected authors: %v", creator.authors)
	}

	pos := cursor.Get()
	if pos.FileIndex != 1 || pos.RowOffset != 2 {
		t.Errorf("cursor should point past the last row, got %+v", pos)
	}
	if pos.TotalProcessed != 3 || pos.TotalSkipped != 2 {
		t.Errorf("unexpected cursor totals: %+v", pos)
	}

	if v := testutil.ToFloat64(m.rowsProcessed); v != 3 {
		t.Errorf("rows_processed_total = %v, want 3", v)
	}
	if v := testutil.ToFloat64(m.rowsSkipped.WithLabelValues(reasonClosed)); v != 1 {
		t.Errorf("rows_skipped_total{closed} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.rowsSkipped.WithLabelValues(reasonNoCoords)); v != 1 {
		t.Errorf("rows_skipped_total{no_coords} = %v, want 1", v)
	}
}

func TestIngester_CountsFailures(t *testing.T) {
	src := &sliceSource{files: [][]Place{{namedPlace("ok"), namedPlace("invalid"), namedPlace("down")}}}
	creator := &recordingCreator{failFn: func(in domstore.Input) error {
		switch in.Name {
		case "invalid":
			return domain.Validationf("bad")
		case "down":
			return domain.Storage("json set", errors.New("connection refused"))
		}
		return nil
	}}
	cursor, err := NewCursorTracker(t.TempDir(), 10, nil)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	m := NewMetrics(prometheus.NewRegistry())

	res, err := NewIngester(creator, "importer", cursor).WithWorkers(1).WithMetrics(m).
		Run(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Processed != 1 || res.Failed != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if v := testutil.ToFloat64(m.rowsFailed.WithLabelValues(reasonInvalid)); v != 1 {
		t.Errorf("rows_failed_total{invalid} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.rowsFailed.WithLabelValues(reasonError)); v != 1 {
		t.Errorf("rows_failed_total{error} = %v, want 1", v)
	}
}

func TestIngester_ResumesFromCursor(t *testing.T) {
	dir := t.TempDir()
	src := &sliceSource{files: [][]Place{
		{namedPlace("a"), namedPlace("b")},
		{namedPlace("c"), namedPlace("d")},
	}}

	first, err := NewCursorTracker(dir, 1, nil)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if _, err := NewIngester(&recordingCreator{}, "importer", first).
		WithWorkers(1).WithBatchSize(1).Run(context.Background(), src, 3); err != nil {
		t.Fatalf("first run: %v", err)
	}

	resumed, err := NewCursorTracker(dir, 1, nil)
	if err != nil {
		t.Fatalf("reload cursor: %v", err)
	}
	creator := &recordingCreator{}
	res, err := NewIngester(creator, "importer", resumed).WithWorkers(1).Run(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := creator.sortedNames(); len(got) != 1 || got[0] != "d" || res.Processed != 1 {
		t.Errorf("expected only the remaining place, got %v (%+v)", got, res)
	}
}

func TestIngester_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cursor, err := NewCursorTracker(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	creator := &recordingCreator{}
	src := &sliceSource{files: [][]Place{{namedPlace("a")}}}

	_, err = NewIngester(creator, "importer", cursor).Run(ctx, src, 0)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(creator.sortedNames()) != 0 {
		t.Error("expected no stores after cancellation")
	}
}
