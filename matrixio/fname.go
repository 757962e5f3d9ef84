package matrixio

import "strings"

// Suffix is the canonical container filename suffix.
const Suffix = ".nc"

// NormalizeName appends the canonical suffix unless name already ends
// with it. The check is against the true tail of the string, so a name
// that merely contains the suffix text somewhere earlier still gets the
// suffix appended. Normalizing twice yields the same result as once.
func NormalizeName(name string) string {
	if strings.HasSuffix(name, Suffix) {
		return name
	}
	return name + Suffix
}
