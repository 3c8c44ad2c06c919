package study

import "strings"

// resolutionMarker is the literal section delimiter the scenario text uses
// to separate the overview from the recommended solution. The AI gateway
// asks for it but does not enforce it.
const resolutionMarker = "Resolution"

// SplitScenario splits scenario text at the first occurrence of the
// resolution marker, for progressive disclosure. When the marker is
// absent the entire text is the overview and there is no resolution.
func SplitScenario(text string) (overview, resolution string, found bool) {
	i := strings.Index(text, resolutionMarker)
	if i < 0 {
		return text, "", false
	}
	overview = text[:i]
	resolution = strings.TrimLeft(text[i+len(resolutionMarker):], " \t\r\n")
	return overview, resolution, true
}
