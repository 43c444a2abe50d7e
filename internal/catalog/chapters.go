// Package catalog holds the static chapter, reciter and translation tables.
// All tables are initialized once and only ever read afterwards.
package catalog

import "fmt"

const (
	// ChapterCount is the number of surahs
	ChapterCount = 114

	// MaxVerses is the verse count of the longest surah (Al-Baqarah)
	MaxVerses = 286
)

// Chapter is a single surah of the directory
type Chapter struct {
	Index      int
	Name       string
	Translated string
	Verses     int
}

// String renders the chapter the way the surah list shows it
func (c Chapter) String() string {
	return fmt.Sprintf("%d. %s (%s)", c.Index, c.Name, c.Translated)
}

var chapters = [ChapterCount]Chapter{
	{1, "Al-Fatihah", "The Opener", 7},
	{2, "Al-Baqarah", "The Cow", 286},
	{3, "Ali 'Imran", "Family of Imran", 200},
	{4, "An-Nisa", "The Women", 176},
	{5, "Al-Ma'idah", "The Table Spread", 120},
	{6, "Al-An'am", "The Cattle", 165},
	{7, "Al-A'raf", "The Heights", 206},
	{8, "Al-Anfal", "The Spoils of War", 75},
	{9, "At-Tawbah", "The Repentance", 129},
	{10, "Yunus", "Jonah", 109},
	{11, "Hud", "Hud", 123},
	{12, "Yusuf", "Joseph", 111},
	{13, "Ar-Ra'd", "The Thunder", 43},
	{14, "Ibrahim", "Abraham", 52},
	{15, "Al-Hijr", "The Rocky Tract", 99},
	{16, "An-Nahl", "The Bee", 128},
	{17, "Al-Isra", "The Night Journey", 111},
	{18, "Al-Kahf", "The Cave", 110},
	{19, "Maryam", "Mary", 98},
	{20, "Taha", "Ta-Ha", 135},
	{21, "Al-Anbya", "The Prophets", 112},
	{22, "Al-Hajj", "The Pilgrimage", 78},
	{23, "Al-Mu'minun", "The Believers", 118},
	{24, "An-Nur", "The Light", 64},
	{25, "Al-Furqan", "The Criterion", 77},
	{26, "Ash-Shu'ara", "The Poets", 227},
	{27, "An-Naml", "The Ant", 93},
	{28, "Al-Qasas", "The Stories", 88},
	{29, "Al-'Ankabut", "The Spider", 69},
	{30, "Ar-Rum", "The Romans", 60},
	{31, "Luqman", "Luqman", 34},
	{32, "As-Sajdah", "The Prostration", 30},
	{33, "Al-Ahzab", "The Combined Forces", 73},
	{34, "Saba", "Sheba", 54},
	{35, "Fatir", "Originator", 45},
	{36, "Ya-Sin", "Ya Sin", 83},
	{37, "As-Saffat", "Those who set the Ranks", 182},
	{38, "Sad", "The Letter \"Saad\"", 88},
	{39, "Az-Zumar", "The Troops", 75},
	{40, "Ghafir", "The Forgiver", 85},
	{41, "Fussilat", "Explained in Detail", 54},
	{42, "Ash-Shuraa", "The Consultation", 53},
	{43, "Az-Zukhruf", "The Ornaments of Gold", 89},
	{44, "Ad-Dukhan", "The Smoke", 59},
	{45, "Al-Jathiyah", "The Crouching", 37},
	{46, "Al-Ahqaf", "The Wind-Curved Sandhills", 35},
	{47, "Muhammad", "Muhammad", 38},
	{48, "Al-Fath", "The Victory", 29},
	{49, "Al-Hujurat", "The Rooms", 18},
	{50, "Qaf", "The Letter \"Qaf\"", 45},
	{51, "Adh-Dhariyat", "The Winnowing Winds", 60},
	{52, "At-Tur", "The Mount", 49},
	{53, "An-Najm", "The Star", 62},
	{54, "Al-Qamar", "The Moon", 55},
	{55, "Ar-Rahman", "The Beneficent", 78},
	{56, "Al-Waqi'ah", "The Inevitable", 96},
	{57, "Al-Hadid", "The Iron", 29},
	{58, "Al-Mujadila", "The Pleading Woman", 22},
	{59, "Al-Hashr", "The Exile", 24},
	{60, "Al-Mumtahanah", "She that is to be examined", 13},
	{61, "As-Saf", "The Ranks", 14},
	{62, "Al-Jumu'ah", "The Congregation, Friday", 11},
	{63, "Al-Munafiqun", "The Hypocrites", 11},
	{64, "At-Taghabun", "The Mutual Disillusion", 18},
	{65, "At-Talaq", "The Divorce", 12},
	{66, "At-Tahrim", "The Prohibition", 12},
	{67, "Al-Mulk", "The Sovereignty", 30},
	{68, "Al-Qalam", "The Pen", 52},
	{69, "Al-Haqqah", "The Reality", 52},
	{70, "Al-Ma'arij", "The Ascending Stairways", 44},
	{71, "Nuh", "Noah", 28},
	{72, "Al-Jinn", "The Jinn", 28},
	{73, "Al-Muzzammil", "The Enshrouded One", 20},
	{74, "Al-Muddaththir", "The Cloaked One", 56},
	{75, "Al-Qiyamah", "The Resurrection", 40},
	{76, "Al-Insan", "The Man", 31},
	{77, "Al-Mursalat", "The Emissaries", 50},
	{78, "An-Naba", "The Tidings", 40},
	{79, "An-Nazi'at", "Those who drag forth", 46},
	{80, "'Abasa", "He Frowned", 42},
	{81, "At-Takwir", "The Overthrowing", 29},
	{82, "Al-Infitar", "The Cleaving", 19},
	{83, "Al-Mutaffifin", "The Defrauding", 36},
	{84, "Al-Inshiqaq", "The Sundering", 25},
	{85, "Al-Buruj", "The Mansions of the Stars", 22},
	{86, "At-Tariq", "The Nightcommer", 17},
	{87, "Al-A'la", "The Most High", 19},
	{88, "Al-Ghashiyah", "The Overwhelming", 26},
	{89, "Al-Fajr", "The Dawn", 30},
	{90, "Al-Balad", "The City", 20},
	{91, "Ash-Shams", "The Sun", 15},
	{92, "Al-Layl", "The Night", 21},
	{93, "Ad-Duhaa", "The Morning Hours", 11},
	{94, "Ash-Sharh", "The Relief", 8},
	{95, "At-Tin", "The Fig", 8},
	{96, "Al-'Alaq", "The Clot", 19},
	{97, "Al-Qadr", "The Power", 5},
	{98, "Al-Bayyinah", "The Clear Proof", 8},
	{99, "Az-Zalzalah", "The Earthquake", 8},
	{100, "Al-'Adiyat", "The Courser", 11},
	{101, "Al-Qari'ah", "The Calamity", 11},
	{102, "At-Takathur", "The Rivalry in world increase", 8},
	{103, "Al-'Asr", "The Declining Day", 3},
	{104, "Al-Humazah", "The Traducer", 9},
	{105, "Al-Fil", "The Elephant", 5},
	{106, "Quraysh", "Quraysh", 4},
	{107, "Al-Ma'un", "The Small kindnesses", 7},
	{108, "Al-Kawthar", "The Abundance", 3},
	{109, "Al-Kafirun", "The Disbelievers", 6},
	{110, "An-Nasr", "The Divine Support", 3},
	{111, "Al-Masad", "The Palm Fiber", 5},
	{112, "Al-Ikhlas", "The Sincerity", 4},
	{113, "Al-Falaq", "The Daybreak", 5},
	{114, "An-Nas", "Mankind", 6},
}

// Chapters returns a copy of the chapter directory in ascending order
func Chapters() []Chapter {
	out := make([]Chapter, len(chapters))
	copy(out, chapters[:])
	return out
}

// ChapterByIndex returns the chapter with the given 1-based index
func ChapterByIndex(index int) (Chapter, bool) {
	if index < 1 || index > ChapterCount {
		return Chapter{}, false
	}
	return chapters[index-1], true
}

// ChapterName returns "Al-Fatihah" style names and falls back to the number
func ChapterName(index int) string {
	if c, ok := ChapterByIndex(index); ok {
		return c.Name
	}
	return fmt.Sprintf("Surah %d", index)
}
