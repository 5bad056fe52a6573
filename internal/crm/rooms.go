package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hotelwizard/internal/wizard"
)

type roomPayload struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	RoomNumber    string     `json:"roomNumber"`
	Floor         floorValue `json:"floor"`
	RoomType      string     `json:"roomType"`
	PricePerNight float64    `json:"pricePerNight"`
	Features      string     `json:"features"`
}

// floorValue normalizes numeric and string floors to a trimmed decimal
// string, so 3, 3.0 and " 3 " all read as "3".
type floorValue string

func (f *floorValue) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*f = floorValue(strconv.FormatFloat(t, 'f', -1, 64))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(n, 'f', -1, 64)
		}
		*f = floorValue(s)
	default:
		*f = ""
	}
	return nil
}

func (p roomPayload) toRoom() wizard.Room {
	return wizard.Room{
		ID:            p.ID,
		Name:          p.Name,
		Number:        p.RoomNumber,
		Floor:         string(p.Floor),
		Type:          p.RoomType,
		PricePerNight: p.PricePerNight,
		Features:      p.Features,
	}
}

// SearchAvailableRooms lists rooms free over the whole stay.
func (c *Client) SearchAvailableRooms(ctx context.Context, checkIn, checkOut string) ([]wizard.Room, error) {
	q := url.Values{}
	q.Set("checkIn", checkIn)
	q.Set("checkOut", checkOut)

	var payload []roomPayload
	if err := c.do(ctx, http.MethodGet, "/rooms/available", q, nil, &payload); err != nil {
		return nil, err
	}
	rooms := make([]wizard.Room, 0, len(payload))
	for _, p := range payload {
		rooms = append(rooms, p.toRoom())
	}
	return rooms, nil
}

// FetchRoomTypeOptions returns the room type picklist.
func (c *Client) FetchRoomTypeOptions(ctx context.Context) ([]wizard.Option, error) {
	var payload []wizard.Option
	if err := c.do(ctx, http.MethodGet, "/reservations/room-types", nil, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]wizard.Option, 0, len(payload))
	for _, o := range payload {
		if strings.TrimSpace(o.Value) == "" {
			continue
		}
		if o.Label == "" {
			o.Label = o.Value
		}
		out = append(out, o)
	}
	return out, nil
}

var (
	_ wizard.RoomFinder     = (*Client)(nil)
	_ wizard.RoomTypeSource = (*Client)(nil)
)
