// Package redact implements the secret redactor (spec §4.2 / C2):
// every whitespace-delimited token of byte length ≥20 classified as
// random is replaced with a fixed-width marker, layered under a
// gitleaks pattern pass. Ported from the teacher's redact/redact.go
// (region-merge-and-replace structure, lazy detector init, JSONL-aware
// redaction), with the Shannon-entropy classifier replaced by the
// bigram/Stirling model spec §4.2 mandates.
package redact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// MinTokenLen is the minimum byte length a whitespace-delimited token
// must reach before it is eligible for entropy-based classification.
const MinTokenLen = 20

// RandomThreshold is the p_random cutoff above which a token is
// redacted.
const RandomThreshold = 0.6

// Marker replaces redacted spans.
const Marker = "[REDACTED]"

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

type region struct{ start, end int }

// RedactText replaces secrets in text with Marker using layered
// detection — entropy-classified long tokens, then gitleaks pattern
// rules — and returns the redacted text plus the number of spans
// redacted.
func RedactText(text string) (string, int) {
	var regions []region

	for _, span := range whitespaceTokenSpans(text) {
		tok := text[span.start:span.end]
		if len(tok) < MinTokenLen {
			continue
		}
		if IsRandom(tok, RandomThreshold) {
			regions = append(regions, span)
		}
	}

	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(text) {
			if f.Secret == "" {
				continue
			}
			searchFrom := 0
			for {
				idx := strings.Index(text[searchFrom:], f.Secret)
				if idx < 0 {
					break
				}
				absIdx := searchFrom + idx
				regions = append(regions, region{absIdx, absIdx + len(f.Secret)})
				searchFrom = absIdx + len(f.Secret)
			}
		}
	}

	if len(regions) == 0 {
		return text, 0
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
		} else {
			merged = append(merged, r)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(text[prev:r.start])
		b.WriteString(Marker)
		prev = r.end
	}
	b.WriteString(text[prev:])
	return b.String(), len(merged)
}

// whitespaceTokenSpans returns the byte ranges of whitespace-delimited
// tokens in text.
func whitespaceTokenSpans(text string) []region {
	var spans []region
	start := -1
	for i := 0; i < len(text); i++ {
		isSpace := text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r'
		switch {
		case isSpace && start >= 0:
			spans = append(spans, region{start, i})
			start = -1
		case !isSpace && start < 0:
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, region{start, len(text)})
	}
	return spans
}

// Bytes redacts []byte content.
func Bytes(b []byte) []byte {
	redacted, n := RedactText(string(b))
	if n == 0 {
		return b
	}
	return []byte(redacted)
}

// JSONLBytes is a convenience wrapper around JSONLContent for []byte
// content.
func JSONLBytes(b []byte) ([]byte, error) {
	s := string(b)
	redacted, err := JSONLContent(s)
	if err != nil {
		return nil, err
	}
	if redacted == s {
		return b, nil
	}
	return []byte(redacted), nil
}

// JSONLContent parses each line as JSON to determine which string
// values need redaction, then performs targeted replacements on the
// raw JSON bytes. Lines with no secrets are returned unchanged,
// preserving original formatting. Used before a transcript is written
// to the working log or the internal prompt store (spec §4.2); the
// original, unredacted text is never persisted.
func JSONLContent(content string) (string, error) {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			b.WriteString(line)
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			redacted, _ := RedactText(line)
			b.WriteString(redacted)
			continue
		}
		repls := collectJSONLReplacements(parsed)
		if len(repls) == 0 {
			b.WriteString(line)
			continue
		}
		result := line
		for _, r := range repls {
			origJSON, err := jsonEncodeString(r[0])
			if err != nil {
				return "", err
			}
			replJSON, err := jsonEncodeString(r[1])
			if err != nil {
				return "", err
			}
			result = strings.ReplaceAll(result, origJSON, replJSON)
		}
		b.WriteString(result)
	}
	return b.String(), nil
}

// collectJSONLReplacements walks a parsed JSON value and collects
// unique (original, redacted) string pairs for values that need
// redaction.
func collectJSONLReplacements(v any) [][2]string {
	seen := make(map[string]bool)
	var repls [][2]string
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if shouldSkipJSONLObject(val) {
				return
			}
			for k, child := range val {
				if shouldSkipJSONLField(k) {
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		case string:
			redacted, n := RedactText(val)
			if n > 0 && !seen[val] {
				seen[val] = true
				repls = append(repls, [2]string{val, redacted})
			}
		}
	}
	walk(v)
	return repls
}

// shouldSkipJSONLField excludes keys that are identifiers or
// signatures rather than free text, where the entropy classifier would
// otherwise misfire constantly.
func shouldSkipJSONLField(key string) bool {
	if key == "signature" {
		return true
	}
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "id") || strings.HasSuffix(lower, "ids")
}

// shouldSkipJSONLObject excludes inline image/base64 payloads, which
// are high-entropy by construction but not secrets.
func shouldSkipJSONLObject(obj map[string]any) bool {
	t, ok := obj["type"].(string)
	return ok && (strings.HasPrefix(t, "image") || t == "base64")
}

// jsonEncodeString returns the JSON encoding of s without HTML
// escaping, matching how the raw line was originally serialized.
func jsonEncodeString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("json encode string: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
