package model

import "time"

// District is one of the fixed administrative regions a mood is reported for.
type District string

// Mood is one of the fixed emotional states a user can report.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodAngry   Mood = "angry"
	MoodExcited Mood = "excited"
	MoodNeutral Mood = "neutral"
)

// Districts lists every district in display order. The client renders a
// tile for each of these whether or not it has recent submissions.
var Districts = []District{
	"Thiruvananthapuram",
	"Kollam",
	"Pathanamthitta",
	"Alappuzha",
	"Kottayam",
	"Idukki",
	"Ernakulam",
	"Thrissur",
	"Palakkad",
	"Malappuram",
	"Kozhikode",
	"Wayanad",
	"Kannur",
	"Kasargod",
}

// Moods lists every mood. The order doubles as the final tie-break when two
// moods are equally dominant in a district.
var Moods = []Mood{MoodHappy, MoodSad, MoodAngry, MoodExcited, MoodNeutral}

var (
	districtIndex = indexOf(Districts)
	moodIndex     = indexOf(Moods)
)

func indexOf[T comparable](values []T) map[T]int {
	m := make(map[T]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

// Valid reports whether d is one of the known districts (case-sensitive).
func (d District) Valid() bool {
	_, ok := districtIndex[d]
	return ok
}

// Index returns the display position of d, or -1 if d is unknown.
func (d District) Index() int {
	if i, ok := districtIndex[d]; ok {
		return i
	}
	return -1
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	_, ok := moodIndex[m]
	return ok
}

// Index returns the tie-break rank of m, or -1 if m is unknown.
func (m Mood) Index() int {
	if i, ok := moodIndex[m]; ok {
		return i
	}
	return -1
}

// MoodSubmission is one user's anonymous report for one district.
// Submissions are append-only: never updated, never deleted.
type MoodSubmission struct {
	ID        string    `json:"id"        db:"id"`
	District  District  `json:"district"  db:"district"`
	Mood      Mood      `json:"mood"      db:"mood"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// MoodCount is the number of submissions for one (district, mood) pair inside
// an aggregation window, plus the time the earliest of them arrived.
type MoodCount struct {
	District         District
	Mood             Mood
	Count            int
	FirstSubmittedAt time.Time
}

// DistrictMood is the derived rollup entry for a district: the dominant mood
// over the window and how many submissions named it.
type DistrictMood struct {
	District District `json:"district"`
	Mood     Mood     `json:"mood"`
	Count    int      `json:"count"`
}
