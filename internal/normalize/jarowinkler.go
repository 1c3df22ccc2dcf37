package normalize

// JaroWinkler computes the Jaro-Winkler similarity between two strings.
// Matching uses a window of floor(max(len)/2)-1 (never negative),
// transpositions are counted over the matched-character sequences in
// original order, and the Winkler boost rewards a common prefix of up
// to four characters.
func JaroWinkler(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	a := []rune(s1)
	b := []rune(s2)

	window := maxInt(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := maxInt(0, i-window)
		end := minInt(len(b), i+window+1)
		for j := start; j < end; j++ {
			if !bMatched[j] && b[j] == a[i] {
				aMatched[i] = true
				bMatched[j] = true
				matches++
				break
			}
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Walk both matched sequences in original order and count positions
	// where they disagree; half of those are transpositions.
	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0
	jaro := (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3.0

	prefix := 0
	for i := 0; i < minInt(4, minInt(len(a), len(b))); i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}

	return jaro + 0.1*float64(prefix)*(1.0-jaro)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
