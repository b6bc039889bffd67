package main

import "testing"

func TestIsBotName(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		player  string
		want    bool
	}{
		{"empty pattern never matches", "", "bot_Steve", false},
		// substring mode
		{"substring match at start", "bot_", "bot_Steve", true},
		{"substring match in middle", "bot_", "Steve_bot_x", true},
		{"substring no match", "bot_", "Steve", false},
		{"substring case-insensitive", "BOT_", "steve_bot_x", true},
		// glob mode
		{"glob prefix match", "bot_*", "bot_Steve", true},
		{"glob anchored to whole name", "bot_*", "Steve_bot_x", false},
		{"glob case-insensitive", "Bot_*", "BOT_steve", true},
		{"glob question mark", "bot?", "bot7", true},
		{"glob question mark length", "bot?", "bot77", false},
		{"glob character class", "bot[0-9]", "bot5", true},
		{"glob character class miss", "bot[0-9]", "botx", false},
		{"glob no match means kept", "carpet_*", "Steve", false},
		{"invalid glob treated as no match", "bot[", "bot[", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBotName(tc.player, tc.pattern); got != tc.want {
				t.Fatalf("isBotName(%q, %q) = %v, want %v", tc.player, tc.pattern, got, tc.want)
			}
		})
	}
}
