package tempo

import (
	"errors"
	"math"
	"testing"
)

func TestBeatOffset(t *testing.T) {
	tests := []struct {
		name      string
		bpmA      float64
		bpmB      float64
		positionA float64
		want      float64
	}{
		{"aligned at zero", 120, 120, 0, 0},
		{"aligned on a beat boundary", 120, 120, 1500, 0},
		{"quarter beat same tempo", 120, 120, 125, 125},
		{"half beat into slower deck", 120, 60, 250, 500},
		{"half beat into faster deck", 60, 120, 500, 250},
		{"negative position wraps", 120, 120, -125, 375},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BeatOffset(tt.bpmA, tt.bpmB, tt.positionA)
			if err != nil {
				t.Fatalf("BeatOffset: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("BeatOffset(%v, %v, %v) = %v, want %v", tt.bpmA, tt.bpmB, tt.positionA, got, tt.want)
			}
		})
	}
}

func TestBeatOffsetWithinPeriod(t *testing.T) {
	for pos := 0.0; pos < 10000; pos += 37 {
		got, err := BeatOffset(128, 93, pos)
		if err != nil {
			t.Fatalf("BeatOffset: %v", err)
		}
		if got < 0 || got >= 60000/93.0 {
			t.Fatalf("BeatOffset at %v = %v, outside [0, period)", pos, got)
		}
	}
}

func TestBeatOffsetRejectsInvalidBPM(t *testing.T) {
	for _, bpm := range [][2]float64{{0, 120}, {120, -1}, {math.NaN(), 120}} {
		if _, err := BeatOffset(bpm[0], bpm[1], 0); !errors.Is(err, ErrInvalidBPM) {
			t.Fatalf("BeatOffset(%v, %v) err = %v, want ErrInvalidBPM", bpm[0], bpm[1], err)
		}
	}
}
