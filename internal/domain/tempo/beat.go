// Package tempo считает выравнивание по битам и ведёт деки DJ-режима.
package tempo

import (
	"errors"
	"math"
)

var ErrInvalidBPM = errors.New("bpm must be positive")

// BeatOffset переносит фазу внутри такта трека A на трек B.
// Результат в миллисекундах, в диапазоне [0, период B).
func BeatOffset(bpmA, bpmB, positionA float64) (float64, error) {
	if bpmA <= 0 || bpmB <= 0 || math.IsNaN(bpmA) || math.IsNaN(bpmB) {
		return 0, ErrInvalidBPM
	}

	periodA := 60000 / bpmA
	periodB := 60000 / bpmB

	phase := math.Mod(positionA, periodA)
	if phase < 0 {
		phase += periodA
	}

	offset := math.Mod(phase/periodA*periodB, periodB)
	if offset < 0 {
		offset += periodB
	}

	return offset, nil
}
