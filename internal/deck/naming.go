package deck

import (
	"crypto/sha1" //nolint:gosec // deterministic id derivation, not security
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// FamilyDeckID derives a stable deck id from the base id and the family name: the base plus
// the integer value of the first 8 hex digits of the family's SHA-1
func FamilyDeckID(base int64, family string) int64 {
	offset, _ := strconv.ParseInt(familyHash(family), 16, 64)
	return base + offset
}

func familyHash(family string) string {
	sum := sha1.Sum([]byte(family)) //nolint:gosec // see above
	return hex.EncodeToString(sum[:])[:8]
}

// FamilyFileNames maps each family to its file-safe name. Families whose sanitized names
// collide, ignoring case, get the first 8 hex digits of their SHA-1 appended.
func FamilyFileNames(families []string) map[string]string {
	names := make(map[string]string, len(families))
	owners := make(map[string]int)
	for _, family := range families {
		if _, seen := names[family]; seen {
			continue
		}
		name := SanitizeName(family)
		names[family] = name
		owners[strings.ToLower(name)]++
	}
	for family, name := range names {
		if owners[strings.ToLower(name)] > 1 {
			names[family] = name + "_" + familyHash(family)
		}
	}
	return names
}

// SanitizeName keeps letters, digits, spaces, hyphens and underscores, trims trailing spaces and
// turns spaces into underscores. Names with nothing left fall back to their slug.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
	if strings.Trim(clean, "_-") != "" {
		return clean
	}
	if s := slug.Make(name); s != "" {
		return s
	}
	return "family"
}
