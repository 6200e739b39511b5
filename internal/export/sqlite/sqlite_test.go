package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/ppl-reader/core"
	"github.com/signalsfoundry/ppl-reader/internal/export"
	"github.com/signalsfoundry/ppl-reader/internal/ppltest"
	"github.com/signalsfoundry/ppl-reader/model"
)

func exportMinimal(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	p, err := core.Parse(ppltest.Minimal().Text())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sink, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sink.Close()
	if _, err := export.Write(ctx, p, sink); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")
	exportMinimal(t, path)

	r, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	attrs, err := r.Attributes(ctx)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if attrs["title"] != "Flowline" || attrs["network"] != "1" || attrs["length_unit"] != "M" {
		t.Fatalf("attributes = %v", attrs)
	}

	paths, err := r.Paths(ctx)
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	want := []string{
		"/branches/PIPE-1/boundaries",
		"/branches/PIPE-1/geometry",
		"/branches/PIPE-1/sections",
		"/catalog",
		"/time",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	geo, err := r.Table(ctx, "/branches/PIPE-1/geometry")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	wantGeo := &model.Table{
		IndexNames: []string{"node"},
		Index:      [][]float64{{0}, {1}, {2}},
		Columns:    []string{"length", "elevation"},
		Values:     [][]float64{{0, 0}, {50, -5}, {100, -10}},
	}
	if diff := cmp.Diff(wantGeo, geo); diff != "" {
		t.Fatalf("geometry mismatch (-want +got):\n%s", diff)
	}

	cat, err := r.Records(ctx, "/catalog")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(cat.Rows) != 2 || cat.Rows[1][0] != "HOL" || cat.Rows[0][1] != "BOUNDARY" {
		t.Fatalf("catalog records = %v", cat.Rows)
	}

	if _, err := r.Table(ctx, "/catalog"); err == nil {
		t.Fatalf("reading records as a table succeeded")
	}
	if _, err := r.Table(ctx, "/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrNotFound)
	}
}

func TestCreateReplacesPreviousExport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")
	exportMinimal(t, path)
	exportMinimal(t, path)

	r, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	tbl, err := r.Table(ctx, "/time")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if tbl.Rows() != 2 {
		t.Fatalf("time rows = %d, want 2", tbl.Rows())
	}
}

func TestUncommittedExportIsDiscarded(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.db")

	sink, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := sink.SetAttribute(ctx, "title", "draft"); err != nil {
		t.Fatalf("SetAttribute: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.SetAttribute(ctx, "title", "late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("error = %v, want %v", err, ErrClosed)
	}

	r, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	attrs, err := r.Attributes(ctx)
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	if len(attrs) != 0 {
		t.Fatalf("attributes = %v, want none", attrs)
	}
}

func TestNaNRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nan.db")

	sink, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sink.Close()
	tbl := export.TimeTable([]float64{math.NaN(), 1})
	if err := sink.WriteTable(ctx, "/time", tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if err := sink.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := r.Table(ctx, "/time")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if !math.IsNaN(got.Values[0][0]) || got.Values[1][0] != 1 {
		t.Fatalf("values = %v", got.Values)
	}
}

func TestUnsupportedAttributeType(t *testing.T) {
	if _, _, err := encodeAttribute([]int{1}); err == nil {
		t.Fatalf("encodeAttribute accepted a slice")
	}
}
