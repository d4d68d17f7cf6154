package imdb

import (
	"strings"
)

const (
	GroupMaster = 0
	GroupSfx    = 1
	GroupVoice  = 2
	GroupMusic  = 3
	NumGroups   = 16
)

var groupNames = map[string]int{
	"master": GroupMaster,
	"sfx":    GroupSfx,
	"voice":  GroupVoice,
	"music":  GroupMusic,
}

// GroupByName resolves a symbolic group name.
// Numeric groups can be spelled as "group4", "group15", etc.
func GroupByName(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if g, ok := groupNames[name]; ok {
		return g, true
	}
	rest, ok := strings.CutPrefix(name, "group")
	if !ok || rest == "" || len(rest) > 2 {
		return 0, false
	}
	g := 0
	for _, ch := range rest {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		g = g*10 + int(ch-'0')
	}
	if g >= NumGroups {
		return 0, false
	}
	return g, true
}

func GroupName(g int) string {
	if g < 0 || g >= NumGroups {
		return "group?"
	}
	switch g {
	case GroupMaster:
		return "master"
	case GroupSfx:
		return "sfx"
	case GroupVoice:
		return "voice"
	case GroupMusic:
		return "music"
	}
	var b strings.Builder
	b.WriteString("group")
	if g >= 10 {
		b.WriteByte(byte('0' + g/10))
	}
	b.WriteByte(byte('0' + g%10))
	return b.String()
}
