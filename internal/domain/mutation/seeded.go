package mutation

import (
	"fmt"
	"hash/fnv"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// CTAVocabulary is the fixed call-to-action vocabulary explore mutations
// draw from.
var CTAVocabulary = []string{
	"Shop Now",
	"Learn More",
	"Sign Up",
	"Get Started",
	"Book Now",
	"Try It Free",
	"Subscribe",
	"See Offer",
}

// StyleVocabulary is the fixed style-cluster vocabulary regret-avoidance
// swaps draw alternatives from.
var StyleVocabulary = []string{
	"minimal",
	"bold",
	"ugc",
	"lifestyle",
	"editorial",
	"playful",
	"luxury",
	"retro",
}

// SeededIndex maps a seed string onto [0, n). The same seed and n always
// produce the same index; reproducibility is a functional requirement here,
// so no random source is involved.
func SeededIndex(seed string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int(h.Sum64() % uint64(n))
}

// SeededPick deterministically selects an option, excluding the given value.
// It returns false when no alternative exists.
func SeededPick(seed string, options []string, exclude string) (string, bool) {
	candidates := make([]string, 0, len(options))
	for _, opt := range options {
		if opt != exclude {
			candidates = append(candidates, opt)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[SeededIndex(seed, len(candidates))], true
}

// Key builds the stable mutation key for a variant: strategy plus target.
// Outcome reports are matched back by this key, never by a regenerated id.
func Key(source shared.MutationSource, parentID, param, to string) string {
	return fmt.Sprintf("%s:%s:%s:%s", source, parentID, param, to)
}
