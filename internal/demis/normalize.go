package demis

import "golang.org/x/text/unicode/norm"

// NormalizeName returns the NFC form of a file name. Sequencer exports and
// network shares occasionally deliver decomposed (NFD) names; the backend
// matches attachment titles byte-wise, so names are normalized once at the
// registration boundary.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}
