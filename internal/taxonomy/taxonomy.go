// Package taxonomy holds the catalog's mood/genre/trope vocabularies and
// the keyword rules used to recategorize books that arrived unclassified.
package taxonomy

import "github.com/ekarhu/tropeshelf/internal/catalog"

// Moods is the canonical mood vocabulary.
var Moods = []string{
	"cozy",
	"angsty",
	"steamy",
	"whimsical",
	"dark",
	"heartwarming",
}

// Genres is the canonical genre vocabulary.
var Genres = []string{
	"contemporary",
	"historical",
	"paranormal",
	"fantasy",
	"romantic-suspense",
	"sports",
}

// Tropes is the canonical trope vocabulary.
var Tropes = []string{
	"enemies-to-lovers",
	"friends-to-lovers",
	"second-chance",
	"fake-dating",
	"grumpy-sunshine",
	"forced-proximity",
	"small-town",
	"marriage-of-convenience",
}

// HeatLevels is the content-intensity scale, mildest first.
var HeatLevels = []string{
	catalog.HeatSweet,
	catalog.HeatWarm,
	catalog.HeatHot,
	catalog.HeatScorching,
}

// ValidMood reports whether m is in the mood vocabulary.
func ValidMood(m string) bool { return contains(Moods, m) }

// ValidGenre reports whether g is in the genre vocabulary.
func ValidGenre(g string) bool { return contains(Genres, g) }

// ValidTrope reports whether t is in the trope vocabulary.
func ValidTrope(t string) bool { return contains(Tropes, t) }

// ValidHeatLevel reports whether h is in the heat level scale.
func ValidHeatLevel(h string) bool { return contains(HeatLevels, h) }

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
