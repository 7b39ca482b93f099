package redact

import (
	"math"
	"sync"
)

// bigramFreq holds the approximate relative frequency of the most
// common English letter pairs (per 1000 bigrams, lowercase), used as
// the natural-language null model in p_random. Pairs absent from the
// table fall back to epsilonBigramFreq.
var bigramFreq = map[[2]byte]float64{
	{'t', 'h'}: 0.0356, {'h', 'e'}: 0.0307, {'i', 'n'}: 0.0243, {'e', 'r'}: 0.0205,
	{'a', 'n'}: 0.0199, {'r', 'e'}: 0.0185, {'o', 'n'}: 0.0176, {'a', 't'}: 0.0149,
	{'e', 'n'}: 0.0145, {'n', 'd'}: 0.0135, {'t', 'i'}: 0.0134, {'e', 's'}: 0.0134,
	{'o', 'r'}: 0.0128, {'t', 'e'}: 0.0120, {'o', 'f'}: 0.0117, {'e', 'd'}: 0.0117,
	{'i', 's'}: 0.0113, {'i', 't'}: 0.0112, {'a', 'l'}: 0.0109, {'a', 'r'}: 0.0107,
	{'s', 't'}: 0.0105, {'t', 'o'}: 0.0104, {'n', 't'}: 0.0104, {'n', 'g'}: 0.0095,
	{'s', 'e'}: 0.0093, {'h', 'a'}: 0.0093, {'a', 's'}: 0.0087, {'o', 'u'}: 0.0087,
	{'i', 'o'}: 0.0083, {'l', 'e'}: 0.0083, {'v', 'e'}: 0.0079, {'c', 'o'}: 0.0079,
	{'m', 'e'}: 0.0079, {'d', 'e'}: 0.0076, {'h', 'i'}: 0.0076, {'r', 'i'}: 0.0073,
	{'r', 'o'}: 0.0073, {'i', 'c'}: 0.0070, {'n', 'e'}: 0.0069, {'l', 'a'}: 0.0068,
}

const epsilonBigramFreq = 0.0005

var (
	logFactTable []float64
	initOnce     sync.Once
)

const logFactTableSize = 4096

// initTables precomputes the log-factorial table (exact for small n,
// Stirling's approximation beyond the table) lazily and once per
// process, per spec §4.2.
func initTables() {
	initOnce.Do(func() {
		logFactTable = make([]float64, logFactTableSize)
		acc := 0.0
		for i := 1; i < logFactTableSize; i++ {
			acc += math.Log(float64(i))
			logFactTable[i] = acc
		}
	})
}

// logFactorial returns ln(n!), exact via table lookup for n within
// logFactTableSize and Stirling's approximation beyond it, keeping the
// classifier O(N) even for pathologically long tokens.
func logFactorial(n int) float64 {
	initTables()
	if n < 2 {
		return 0
	}
	if n < logFactTableSize {
		return logFactTable[n]
	}
	nf := float64(n)
	return nf*math.Log(nf) - nf + 0.5*math.Log(2*math.Pi*nf)
}

// uniformityScore compares the log of the multinomial coefficient of
// s's observed byte-count profile, n!/∏(count_i!), against the
// Stirling-approximated maximum attainable value n·ln(k) (reached when
// every one of the k alphabet symbols occurs with equal frequency
// n/k). Truly random strings have near-balanced count profiles and
// score close to 1; natural-language text is skewed toward a handful
// of common characters and scores well below 1.
func uniformityScore(s string, k int) float64 {
	counts := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := len(s)
	logC := logFactorial(n)
	for _, c := range counts {
		logC -= logFactorial(c)
	}
	maxLogC := float64(n) * math.Log(float64(k))
	if maxLogC <= 0 {
		return 0
	}
	return logC / maxLogC
}

// bigramRandomness averages, per consecutive byte pair of s, how far
// its English bigram frequency sits below the epsilon floor, scaled to
// [0,1]: 1.0 means every pair was unrecognised (epsilon), 0.0 means
// every pair matched the table's single most common bigram.
func bigramRandomness(s string) float64 {
	if len(s) < 2 {
		return 0
	}
	lower := toLowerBytes(s)
	logEpsilon := math.Log(epsilonBigramFreq)
	logMax := math.Log(0.0356) // "th", the table's highest frequency

	var sum float64
	pairs := 0
	for i := 0; i+1 < len(lower); i++ {
		freq, ok := bigramFreq[[2]byte{lower[i], lower[i+1]}]
		if !ok {
			freq = epsilonBigramFreq
		}
		logFreq := math.Log(freq)
		sum += (logFreq - logMax) / (logEpsilon - logMax)
		pairs++
	}
	return sum / float64(pairs)
}

func toLowerBytes(s string) []byte {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return b
}

func alphabetSize(s string) int {
	hasLower, hasUpper, hasDigit, hasSymbol := false, false, false, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	size := 0
	if hasLower {
		size += 26
	}
	if hasUpper {
		size += 26
	}
	if hasDigit {
		size += 10
	}
	if hasSymbol {
		size += 8
	}
	if size == 0 {
		return 1
	}
	return size
}

// pRandom estimates the probability that s is a random token rather
// than natural-language or structured text, combining the Stirling-
// based count-uniformity score with the bigram-naturalness score
// (spec §4.2: "a bigram/Stirling-based estimate").
func pRandom(s string) float64 {
	if len(s) < 2 {
		return 0
	}
	u := clamp01(uniformityScore(s, alphabetSize(s)))
	b := clamp01(bigramRandomness(s))
	return 0.5*u + 0.5*b
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// IsRandom classifies s as a likely-random (secret-like) token when
// p_random exceeds threshold.
func IsRandom(s string, threshold float64) bool {
	return pRandom(s) >= threshold
}
