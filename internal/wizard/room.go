package wizard

import (
	"sort"
	"strconv"
	"strings"
)

// Room is one entry of the availability catalog returned by the CRM.
// Floor is a trimmed decimal string; Features is the raw ";"-separated list.
type Room struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Number        string  `json:"roomNumber"`
	Floor         string  `json:"floor"`
	Type          string  `json:"roomType"`
	PricePerNight float64 `json:"pricePerNight"`
	Features      string  `json:"features"`
}

// FeatureList splits the raw feature string, dropping blanks.
func (r Room) FeatureList() []string {
	return splitFeatures(r.Features)
}

func splitFeatures(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Option is a label/value pair for a select control.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

const (
	allFloorsLabel    = "All Floors"
	allRoomTypesLabel = "All Room Types"
)

// FeatureCatalog is the fixed list of amenities guests can filter on.
var FeatureCatalog = []string{
	"Sea view",
	"Private bathroom (Shower/Bathtub)",
	"Free WiFi",
	"Flat-screen TV with cable",
	"Air conditioning and heating",
	"Wardrobe/Closet",
	"Desk and chair",
	"In-room phone",
	"Safe deposit box",
	"Mini-fridge",
}

var defaultRoomTypes = []string{"Standard", "Deluxe", "Suite"}

// FeatureOptions maps FeatureCatalog to select options.
func FeatureOptions() []Option {
	out := make([]Option, 0, len(FeatureCatalog))
	for _, f := range FeatureCatalog {
		out = append(out, Option{Label: f, Value: f})
	}
	return out
}

// FloorOptions lists the distinct floors of the catalog, numerically sorted
// where possible, behind an "All Floors" entry.
func FloorOptions(catalog []Room) []Option {
	seen := map[string]struct{}{}
	floors := make([]string, 0)
	for _, r := range catalog {
		f := strings.TrimSpace(r.Floor)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		floors = append(floors, f)
	}
	sort.SliceStable(floors, func(i, j int) bool {
		a, errA := strconv.ParseFloat(floors[i], 64)
		b, errB := strconv.ParseFloat(floors[j], 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return floors[i] < floors[j]
	})

	out := []Option{{Label: allFloorsLabel, Value: ""}}
	for _, f := range floors {
		out = append(out, Option{Label: "Floor " + f, Value: f})
	}
	return out
}

// RoomTypeOptions puts the "All Room Types" entry in front of the given types.
func RoomTypeOptions(types []Option) []Option {
	out := []Option{{Label: allRoomTypesLabel, Value: ""}}
	for _, t := range types {
		if t.Value == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// fallbackRoomTypes derives type options from the catalog, or from the
// static set when the catalog carries none.
func fallbackRoomTypes(catalog []Room) []Option {
	seen := map[string]struct{}{}
	types := make([]Option, 0)
	for _, r := range catalog {
		if r.Type == "" {
			continue
		}
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		types = append(types, Option{Label: r.Type, Value: r.Type})
	}
	if len(types) == 0 {
		for _, t := range defaultRoomTypes {
			types = append(types, Option{Label: t, Value: t})
		}
	}
	return RoomTypeOptions(types)
}

func findRoom(catalog []Room, id string) (Room, bool) {
	if id == "" {
		return Room{}, false
	}
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
