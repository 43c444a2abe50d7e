package dashboard

import (
	"strconv"
	"strings"
)

const idPrefix = "quran"

// action is the middle part of a component custom id
type action string

const (
	actionReciter     action = "reciter"
	actionTranslation action = "translation"
	actionRange       action = "range"
	actionPlay        action = "play"
	actionStop        action = "stop"
	actionModal       action = "modal"
	actionPage        action = "page"
)

// text input ids inside the range modal
const (
	inputStart = "start"
	inputEnd   = "end"
)

func customID(a action, arg string) string {
	return idPrefix + ":" + string(a) + ":" + arg
}

func pageID(page int) string {
	return customID(actionPage, strconv.Itoa(page))
}

// parseCustomID splits quran:<action>:<arg>
func parseCustomID(id string) (action, string, bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != idPrefix || parts[2] == "" {
		return "", "", false
	}
	switch a := action(parts[1]); a {
	case actionReciter, actionTranslation, actionRange, actionPlay, actionStop, actionModal, actionPage:
		return a, parts[2], true
	}
	return "", "", false
}
