package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestSplitMarker(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		marker   string
		stmt     string
		wantErr  bool
		sentinel error
	}{
		{
			name:   "valid marker",
			query:  "\n--sql 0b6c1a52-3f7e-4d8b-9a21-5c4e8f7d2a10\nSELECT 1\n",
			marker: "0b6c1a52-3f7e-4d8b-9a21-5c4e8f7d2a10",
			stmt:   "SELECT 1",
		},
		{
			name:     "missing marker",
			query:    "SELECT 1",
			wantErr:  true,
			sentinel: ErrMissingMarker,
		},
		{
			name:     "uppercase uuid rejected",
			query:    "--sql 0B6C1A52-3F7E-4D8B-9A21-5C4E8F7D2A10\nSELECT 1",
			wantErr:  true,
			sentinel: ErrMissingMarker,
		},
		{
			name:    "empty",
			query:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker, stmt, err := SplitMarker(tt.query)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
					t.Fatalf("error = %v, want %v", err, tt.sentinel)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if marker != tt.marker {
				t.Fatalf("marker = %q, want %q", marker, tt.marker)
			}
			if stmt != tt.stmt {
				t.Fatalf("stmt = %q, want %q", stmt, tt.stmt)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows to be recognised")
	}
	if !IsNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to be recognised")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unexpected match for unrelated error")
	}
}
