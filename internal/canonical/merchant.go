package canonical

import (
	"regexp"
	"sort"
	"strings"

	"bank-ledger-reconciler/internal/normalizer"
)

var (
	branchSuffix  = regexp.MustCompile(`\s+(?:SUC|SUCURSAL)\b.*$`)
	storeNumber   = regexp.MustCompile(`\s*#\s*\d+\s*$`)
	punctuation   = regexp.MustCompile(`[^A-Z0-9& ]+`)
	channelPrefix = regexp.MustCompile(`^(?:COMPRA|POS|SINPE MOVIL|SINPE|TEF|TRANSF|TRANSFERENCIA)\s+`)
	defaultPlaces = []string{"COSTA RICA", "SAN JOSE", "SANTA ANA", "ESCAZU", "HEREDIA", "ALAJUELA", "CARTAGO", "CURRIDABAT", "LIBERIA", "SJO", "CRI", "CR"}
)

// MerchantNormalizer turns raw counterparty text into the comparable form
// used for matching and duplicate detection.
type MerchantNormalizer struct {
	places  []string
	exact   map[string]string
	entries []aliasEntry
}

type aliasEntry struct {
	pattern   string
	canonical string
}

// NewMerchantNormalizer builds a normalizer from an alias table. Patterns
// are cleaned the same way as merchant text before lookup.
func NewMerchantNormalizer(aliases []Alias) *MerchantNormalizer {
	m := &MerchantNormalizer{
		places: defaultPlaces,
		exact:  make(map[string]string),
	}
	m.AddAliases(aliases)
	return m
}

// AddAliases extends the alias table. Later entries win on exact conflicts.
func (m *MerchantNormalizer) AddAliases(aliases []Alias) {
	for _, a := range aliases {
		canonical := m.clean(a.Canonical)
		if canonical == "" {
			continue
		}
		m.exact[canonical] = canonical
		for _, p := range a.Patterns {
			pattern := m.clean(p)
			if pattern == "" {
				continue
			}
			m.exact[pattern] = canonical
			m.entries = append(m.entries, aliasEntry{pattern: pattern, canonical: canonical})
		}
	}

	// longest pattern wins substring lookups
	sort.SliceStable(m.entries, func(i, j int) bool {
		return len(m.entries[i].pattern) > len(m.entries[j].pattern)
	})
}

// AliasCount returns the number of substring patterns known
func (m *MerchantNormalizer) AliasCount() int {
	return len(m.entries)
}

// Normalize returns the canonical merchant name. Unknown merchants come
// back cleaned but unmapped.
func (m *MerchantNormalizer) Normalize(raw string) string {
	name := m.clean(raw)
	if name == "" {
		return ""
	}

	if canonical, ok := m.exact[name]; ok {
		return canonical
	}
	for _, e := range m.entries {
		if containsWords(name, e.pattern) {
			return e.canonical
		}
	}
	return name
}

// clean applies every step except alias mapping
func (m *MerchantNormalizer) clean(raw string) string {
	s := strings.ToUpper(normalizer.StripDiacritics(normalizer.Unescape(raw)))
	s = branchSuffix.ReplaceAllString(s, "")
	s = storeNumber.ReplaceAllString(s, "")
	s = punctuation.ReplaceAllString(s, " ")
	s = normalizer.CollapseSpaces(s)

	for {
		trimmed := m.trimPlace(s)
		if trimmed == s {
			break
		}
		s = trimmed
	}

	if stripped := channelPrefix.ReplaceAllString(s, ""); stripped != "" {
		s = stripped
	}
	return s
}

// trimPlace removes one trailing city or country token, never the whole name
func (m *MerchantNormalizer) trimPlace(s string) string {
	for _, place := range m.places {
		if strings.HasSuffix(s, " "+place) {
			return strings.TrimSpace(strings.TrimSuffix(s, place))
		}
	}
	return s
}

// containsWords reports whether pattern occurs in name on word boundaries
func containsWords(name, pattern string) bool {
	return strings.Contains(" "+name+" ", " "+pattern+" ")
}
