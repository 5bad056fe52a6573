package wizard

import "strings"

// Filter narrows the catalog. An empty axis matches every room.
type Filter struct {
	Floor      string   `json:"floor"`
	RoomNumber string   `json:"roomNumber"`
	RoomType   string   `json:"roomType"`
	Features   []string `json:"features"`
}

func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Floor) == "" &&
		strings.TrimSpace(f.RoomNumber) == "" &&
		f.RoomType == "" &&
		len(f.Features) == 0
}

// Matches reports whether the room passes every non-empty axis.
func (f Filter) Matches(r Room) bool {
	if floor := strings.TrimSpace(f.Floor); floor != "" {
		if strings.TrimSpace(r.Floor) != floor {
			return false
		}
	}
	if q := strings.TrimSpace(f.RoomNumber); q != "" {
		if !strings.Contains(strings.ToLower(r.Number), strings.ToLower(q)) {
			return false
		}
	}
	if f.RoomType != "" && r.Type != f.RoomType {
		return false
	}
	if len(f.Features) > 0 {
		have := map[string]struct{}{}
		for _, feat := range r.FeatureList() {
			have[feat] = struct{}{}
		}
		for _, want := range f.Features {
			if _, ok := have[strings.TrimSpace(want)]; !ok {
				return false
			}
		}
	}
	return true
}

// ApplyFilter returns the rooms of catalog that match f, in catalog order.
// The catalog is never modified.
func ApplyFilter(catalog []Room, f Filter) []Room {
	out := make([]Room, 0, len(catalog))
	for _, r := range catalog {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) clone() Filter {
	c := f
	if f.Features != nil {
		c.Features = append([]string(nil), f.Features...)
	}
	return c
}
