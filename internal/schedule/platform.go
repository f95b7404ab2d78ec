package schedule

import "strings"

// Known platform labels.
const (
	PlatformChzzk   = "CHZZK"
	PlatformYouTube = "YouTube"
	PlatformTwitch  = "Twitch"
)

// platformAliases is checked in priority order; the first platform with a
// matching alias wins.
var platformAliases = []struct {
	label   string
	aliases []string
}{
	{PlatformChzzk, []string{"치지직", "줍소", "chzzk"}},
	{PlatformYouTube, []string{"유튜브", "youtube"}},
	{PlatformTwitch, []string{"트위치", "twitch"}},
}

// DetectPlatform classifies free text into a platform label by
// case-insensitive substring match. No match yields the empty string.
func DetectPlatform(text string) string {
	lower := strings.ToLower(text)
	for _, p := range platformAliases {
		for _, alias := range p.aliases {
			if strings.Contains(lower, alias) {
				return p.label
			}
		}
	}
	return ""
}
