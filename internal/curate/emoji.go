package curate

import "strings"

// emojiRanges covers the unicode blocks used by the decorative prefaces that
// sources attach to items (pictographs, symbols, flags) plus the joiner and
// variation selector codepoints that travel with them.
var emojiRanges = [][2]rune{
	{0x1F000, 0x1F02F}, // Mahjong, dominoes
	{0x1F0A0, 0x1F0FF}, // Playing cards
	{0x1F1E6, 0x1F1FF}, // Regional indicators (flags)
	{0x1F300, 0x1F5FF}, // Misc symbols and pictographs
	{0x1F600, 0x1F64F}, // Emoticons
	{0x1F680, 0x1F6FF}, // Transport
	{0x1F700, 0x1F77F}, // Alchemical
	{0x1F900, 0x1F9FF}, // Supplemental symbols
	{0x1FA00, 0x1FAFF}, // Extended pictographs
	{0x2600, 0x27BF},   // Misc symbols, dingbats
	{0x2B00, 0x2BFF},   // Misc symbols and arrows (stars)
	{0x2300, 0x23FF},   // Misc technical (watch, hourglass)
	{0xFE00, 0xFE0F},   // Variation selectors
	{0x200D, 0x200D},   // Zero-width joiner
	{0x20E3, 0x20E3},   // Combining enclosing keycap
}

func isEmojiRune(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// StripEmoji removes emoji from a string, along with the whitespace their
// removal leaves at the ends. Comparisons against the cross-run cache and the
// substance rules are emoji-insensitive so a changed decorative preface alone
// never breaks a match.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isEmojiRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
