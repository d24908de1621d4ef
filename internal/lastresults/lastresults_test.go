package lastresults

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aidanlsb/discourse/internal/results"
)

func row(text, uid string) results.Row {
	r := results.NewRow()
	r.Set("text", text)
	r.Set("uid", uid)
	return r
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lr := New("claims", "[:find ?node :in $ :where]", []results.Row{
		row("[[CLM]] - Sky is blue", "c1"),
		row("[[CLM]] - Grass is green", "c2"),
	})
	if err := Write(dir, lr); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Query != "claims" || got.Program != lr.Program {
		t.Errorf("got query=%q program=%q", got.Query, got.Program)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if v, _ := got.Rows[1].Get("uid"); v != "c2" {
		t.Errorf("second row uid = %v", v)
	}
	if keys := got.Rows[0].Keys(); !reflect.DeepEqual(keys, []string{"text", "uid"}) {
		t.Errorf("column order = %v", keys)
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read(t.TempDir()); !errors.Is(err, ErrNoLastResults) {
		t.Fatalf("err = %v, want ErrNoLastResults", err)
	}
}

func TestGetByNumbers(t *testing.T) {
	lr := New("", "", []results.Row{row("a", "1"), row("b", "2"), row("c", "3")})

	got, err := lr.GetByNumbers([]int{3, 1})
	if err != nil {
		t.Fatalf("GetByNumbers: %v", err)
	}
	if v, _ := got[0].Get("text"); v != "c" {
		t.Errorf("first = %v, want c", v)
	}
	if _, err := lr.GetByNumbers([]int{4}); !errors.Is(err, ErrNumberOutOfRange) {
		t.Errorf("err = %v, want ErrNumberOutOfRange", err)
	}
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "1", want: []int{1}},
		{input: "1,3,5", want: []int{1, 3, 5}},
		{input: "1-3", want: []int{1, 2, 3}},
		{input: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{input: "2 1 2", want: []int{2, 1}},
		{input: "", wantErr: true},
		{input: "0", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "5-3", wantErr: true},
		{input: "1-5000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNumbers(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidNumber) {
					t.Fatalf("ParseNumbers(%q) err = %v, want ErrInvalidNumber", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNumbers(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNumbers(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumberArgs(t *testing.T) {
	got, err := ParseNumberArgs([]string{"1", "4-5"})
	if err != nil {
		t.Fatalf("ParseNumberArgs: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, 4, 5}) {
		t.Errorf("got %v", got)
	}
	if _, err := ParseNumberArgs(nil); err == nil {
		t.Error("expected error for no args")
	}
}
