package usecase

import "github.com/northbridge-ai/diligence/internal/core/domain"

type rankedChunk struct {
	chunk domain.StoredChunk
	score float64
}

// maxMarginalRelevance greedily selects topK candidates, balancing blended
// relevance against redundancy with what is already selected:
//
//	mmr = diversity*relevance - (1-diversity)*maxSimilarity
//
// Similarity is token-set Jaccard overlap, a deliberately lexical proxy:
// the relevance scores are already embedding-derived, so reusing embeddings
// for diversity would double-count the semantic signal.
// Candidates must arrive sorted by descending score.
func maxMarginalRelevance(candidates []rankedChunk, diversity float64, topK int) []rankedChunk {
	if len(candidates) <= topK {
		return candidates
	}

	tokenSets := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokenSets[i] = tokenSet(c.chunk.Content)
	}

	selected := make([]rankedChunk, 0, topK)
	selectedSets := make([]map[string]struct{}, 0, topK)
	remaining := make([]int, 0, len(candidates)-1)

	selected = append(selected, candidates[0])
	selectedSets = append(selectedSets, tokenSets[0])
	for i := 1; i < len(candidates); i++ {
		remaining = append(remaining, i)
	}

	for len(selected) < topK && len(remaining) > 0 {
		bestScore := negInf
		bestPos := 0

		for pos, idx := range remaining {
			maxSim := 0.0
			for _, sel := range selectedSets {
				if sim := jaccard(tokenSets[idx], sel); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := diversity*candidates[idx].score - (1-diversity)*maxSim
			if mmr > bestScore {
				bestScore = mmr
				bestPos = pos
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, candidates[idx])
		selectedSets = append(selectedSets, tokenSets[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

const negInf = -1e18

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
