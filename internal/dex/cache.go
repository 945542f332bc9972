package dex

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tidemark/surfreplay/internal/db"
	"github.com/tidemark/surfreplay/internal/store"
)

// SaveEnv upserts the discovered environment into the cache database, one
// row per venue.
func SaveEnv(database *db.DB, rpcURL string, env *Env) error {
	venues := []struct {
		name    string
		address string
		payload any
	}{
		{store.VenueRaydium, env.Raydium.AmmID.String(), env.Raydium},
		{store.VenueMeteora, env.Meteora.LbPair.String(), env.Meteora},
	}

	for _, v := range venues {
		payload, err := json.Marshal(v.payload)
		if err != nil {
			return errors.Wrapf(err, "marshal %s environment", v.name)
		}

		var row store.DiscoveredPool
		err = database.Client().Where("venue = ?", v.name).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = store.DiscoveredPool{Venue: v.name}
		case err != nil:
			return errors.Wrapf(err, "look up cached %s pool", v.name)
		}

		row.Address = v.address
		row.Payload = payload
		row.RPCURL = rpcURL
		row.SlotObserved = env.Slot
		if err := database.Client().Save(&row).Error; err != nil {
			return errors.Wrapf(err, "save %s pool", v.name)
		}
	}
	return nil
}

// LoadEnv returns the cached environment for the given node, or nil when any
// venue row is missing or was discovered against a different node.
func LoadEnv(database *db.DB, rpcURL string) (*Env, error) {
	var env Env
	var slot uint64

	load := func(venue string, into any) (bool, error) {
		var row store.DiscoveredPool
		err := database.Client().Where("venue = ?", venue).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrapf(err, "look up cached %s pool", venue)
		}
		if row.RPCURL != rpcURL {
			return false, nil
		}
		if err := json.Unmarshal(row.Payload, into); err != nil {
			return false, errors.Wrapf(err, "decode cached %s environment", venue)
		}
		slot = row.SlotObserved
		return true, nil
	}

	ok, err := load(store.VenueRaydium, &env.Raydium)
	if err != nil || !ok {
		return nil, err
	}
	ok, err = load(store.VenueMeteora, &env.Meteora)
	if err != nil || !ok {
		return nil, err
	}

	env.Slot = slot
	return &env, nil
}
