package engine

import "github.com/mmrzaf/rowgen/internal/random"

func randomizer(seed int64) *random.Randomizer {
	return random.NewSeeded(seed)
}
