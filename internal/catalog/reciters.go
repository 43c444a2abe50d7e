package catalog

// DefaultReciter is used when nothing else was selected
const DefaultReciter = "mishary"

// Reciter is a narrator selectable per session. QuranComID identifies the
// reciter on the chapter recitation provider, AlQuranCloudID is the audio
// edition used for verse-by-verse playback.
type Reciter struct {
	Key            string
	Name           string
	Description    string
	QuranComID     int
	AlQuranCloudID string
}

var reciters = []Reciter{
	{Key: "mishary", Name: "Mishary Rashid Alafasy", Description: "Kuwait", QuranComID: 7, AlQuranCloudID: "ar.alafasy"},
	{Key: "sudais", Name: "Abdul Rahman Al-Sudais", Description: "Mecca", QuranComID: 3, AlQuranCloudID: "ar.abdurrahmaansudais"},
	{Key: "shuraim", Name: "Saud Al-Shuraim", Description: "Mecca", QuranComID: 10, AlQuranCloudID: "ar.saoodshuraym"},
	{Key: "ghamidi", Name: "Saad Al-Ghamidi", Description: "Dammam", QuranComID: 5, AlQuranCloudID: "ar.saadghamidi"},
	{Key: "husary", Name: "Mahmoud Khalil Al-Husary", Description: "Egypt", QuranComID: 6, AlQuranCloudID: "ar.husary"},
	{Key: "abdulbasit", Name: "Abdul Basit Abdus Samad", Description: "Egypt", QuranComID: 2, AlQuranCloudID: "ar.abdulbasitmurattal"},
	{Key: "minshawi", Name: "Mohamed Siddiq Al-Minshawi", Description: "Egypt", QuranComID: 9, AlQuranCloudID: "ar.minshawi"},
}

// Reciters returns all reciters in display order
func Reciters() []Reciter {
	out := make([]Reciter, len(reciters))
	copy(out, reciters)
	return out
}

// ReciterByKey looks up a reciter
func ReciterByKey(key string) (Reciter, bool) {
	for _, r := range reciters {
		if r.Key == key {
			return r, true
		}
	}
	return Reciter{}, false
}

// ReciterOrDefault never fails, unknown keys resolve to the default reciter
func ReciterOrDefault(key string) Reciter {
	if r, ok := ReciterByKey(key); ok {
		return r
	}
	r, _ := ReciterByKey(DefaultReciter)
	return r
}
