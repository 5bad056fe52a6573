package session

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hotelwizard/internal/realtime"
	"hotelwizard/internal/storage/redisstore"
	"hotelwizard/internal/wizard"
)

type Publisher interface {
	Publish(sessionID string, event realtime.Event) int
}

// FactoryDeps are the collaborators shared by every session's wizard.
type FactoryDeps struct {
	Rooms     wizard.RoomFinder
	RoomTypes wizard.RoomTypeSource
	Redirect  wizard.RedirectPayments
	Cards     wizard.CardPayments
	// Redis backs the session cache. Without it each session keeps its
	// drafts in memory.
	Redis      redis.Cmdable
	CacheTTL   time.Duration
	ReturnBase string
	Signer     Signer
	Hub        Publisher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewFactory returns a Factory wiring shared collaborators into per-session
// wizards.
func NewFactory(d FactoryDeps) Factory {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return func(sessionID string) *wizard.Wizard {
		var cache wizard.Store
		if d.Redis != nil {
			cache = redisstore.New(d.Redis, sessionID, d.CacheTTL)
		} else {
			cache = wizard.NewMemoryStore()
		}
		deps := wizard.Deps{
			Rooms:     d.Rooms,
			RoomTypes: d.RoomTypes,
			Redirect:  d.Redirect,
			Cards:     d.Cards,
			URLs:      NewReturnURLs(d.ReturnBase, d.Signer, sessionID),
			Cache:     cache,
			Logger:    d.Logger.With(zap.String("session_id", sessionID)),
			Now:       d.Now,
		}
		if d.Hub != nil {
			deps.OnChange = func(v wizard.View) {
				d.Hub.Publish(sessionID, realtime.Event{Type: realtime.EventSnapshot, Payload: v})
			}
		}
		return wizard.New(deps)
	}
}
