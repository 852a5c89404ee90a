package client

import "github.com/sakif/moodmap/internal/model"

// Tile is one district on the board. Mood is empty and Count is zero when
// the district had no submissions in the window.
type Tile struct {
	District model.District
	Mood     model.Mood
	Count    int
}

// HasMood reports whether the tile has a dominant mood to show.
func (t Tile) HasMood() bool {
	return t.Mood != ""
}

// Board is the full map: one tile per district, always in model.Districts order.
type Board struct {
	Tiles []Tile
}

// NewBoard lays the rollup over the fixed district list. Entries for unknown
// districts are ignored.
func NewBoard(rollup []model.DistrictMood) Board {
	byDistrict := make(map[model.District]model.DistrictMood, len(rollup))
	for _, dm := range rollup {
		byDistrict[dm.District] = dm
	}

	tiles := make([]Tile, len(model.Districts))
	for i, d := range model.Districts {
		tiles[i] = Tile{District: d}
		if dm, ok := byDistrict[d]; ok {
			tiles[i].Mood = dm.Mood
			tiles[i].Count = dm.Count
		}
	}
	return Board{Tiles: tiles}
}

// Tile returns the tile for d.
func (b Board) Tile(d model.District) (Tile, bool) {
	i := d.Index()
	if i < 0 || i >= len(b.Tiles) {
		return Tile{}, false
	}
	return b.Tiles[i], true
}

// Active counts the tiles that have a mood.
func (b Board) Active() int {
	n := 0
	for _, t := range b.Tiles {
		if t.HasMood() {
			n++
		}
	}
	return n
}
