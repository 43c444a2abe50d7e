package quranbot

// chapterItem is a row of the chapter table in the web panel and /api/chapters
type chapterItem struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Translated string `json:"translated"`
	Verses     int    `json:"verses"`
}

// optionItem is an entry of a reciter or translation select
type optionItem struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Selected bool   `json:"-"`
}

// sessionItem describes a guild session for /api/sessions
type sessionItem struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	Guild       string `json:"guild"`
	Channel     string `json:"channel,omitempty"`
	State       string `json:"state"`
	Mode        string `json:"mode,omitempty"`
	Current     string `json:"current,omitempty"`
	Position    int    `json:"position"`
	UnitsPlayed int    `json:"units_played"`
	Started     string `json:"started,omitempty"`
}

// panelPage is the data of the logged in page
type panelPage struct {
	Username     string
	Chapters     []chapterItem
	Reciters     []optionItem
	Translations []optionItem
	Sessions     []sessionItem
	Version      string
}

// playResult answers /play and /stop
type playResult struct {
	Status  string `json:"status"`
	Guild   string `json:"guild,omitempty"`
	Session string `json:"session,omitempty"`
	Mode    string `json:"mode,omitempty"`
}
