package wizard

import (
	"context"

	"go.uber.org/zap"
)

const noRoomsMessage = "No rooms available for selected dates."

// Search asks the room finder for rooms free over the current date range.
// On success the catalog is replaced, filters are reset and, when rooms were
// found, the wizard moves to room selection. A failed search leaves the
// previous catalog untouched. Results of a search overtaken by a newer one,
// or by a reset, are dropped with ErrSuperseded.
func (w *Wizard) Search(ctx context.Context) (Notice, error) {
	defer w.emit()
	w.mu.Lock()
	if w.terminal() {
		w.mu.Unlock()
		return Notice{}, ErrTerminal
	}
	if w.step != StepDateSelection {
		w.mu.Unlock()
		return Notice{}, ErrWrongStep
	}
	if err := w.dates.Validate(w.today()); err != nil {
		w.mu.Unlock()
		return Notice{}, err
	}
	w.searchSeq++
	seq, gen := w.searchSeq, w.generation
	checkIn, checkOut := isoTimestamp(w.dates.CheckIn), isoTimestamp(w.dates.CheckOut)
	w.searching = true
	w.mu.Unlock()

	w.emit()
	rooms, err := w.rooms.SearchAvailableRooms(ctx, checkIn, checkOut)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation || seq != w.searchSeq {
		w.log.Debug("dropping stale search result", zap.Uint64("seq", seq))
		return Notice{}, ErrSuperseded
	}
	w.searching = false
	if err != nil {
		w.log.Warn("room search failed", zap.Error(err))
		return Notice{}, collaboratorError("Error searching for rooms", err)
	}

	w.catalog = append([]Room(nil), rooms...)
	w.filter = Filter{}
	w.visible = ApplyFilter(w.catalog, w.filter)
	w.searched = true
	w.selectedRoomID = ""
	w.reservation.CheckIn = checkIn
	w.reservation.CheckOut = checkOut
	w.recalcStayLocked()
	if w.roomTypesLocal {
		w.roomTypeOptions = fallbackRoomTypes(w.catalog)
	}

	if len(w.catalog) == 0 {
		return info(noRoomsMessage), nil
	}
	w.step = StepRoomSelection
	return Notice{}, nil
}

// SetFloorFilter and the other filter setters recompute the visible rooms
// immediately.
func (w *Wizard) SetFloorFilter(floor string) {
	w.updateFilter(func(f *Filter) { f.Floor = floor })
}

func (w *Wizard) SetRoomNumberFilter(number string) {
	w.updateFilter(func(f *Filter) { f.RoomNumber = number })
}

func (w *Wizard) SetRoomTypeFilter(roomType string) {
	w.updateFilter(func(f *Filter) { f.RoomType = roomType })
}

func (w *Wizard) SetFeatureFilter(features []string) {
	w.updateFilter(func(f *Filter) { f.Features = append([]string(nil), features...) })
}

// ClearFilters shows the full catalog again.
func (w *Wizard) ClearFilters() {
	w.updateFilter(func(f *Filter) { *f = Filter{} })
}

func (w *Wizard) updateFilter(apply func(*Filter)) {
	defer w.emit()
	w.mu.Lock()
	defer w.mu.Unlock()
	apply(&w.filter)
	w.visible = ApplyFilter(w.catalog, w.filter)
}

// VisibleRooms returns a copy of the filtered catalog.
func (w *Wizard) VisibleRooms() []Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Room(nil), w.visible...)
}
