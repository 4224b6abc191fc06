package tracker

import "github.com/rustyeddy/marketwatch/market"

func triggered(dir market.Direction, entry, live float64) bool {
	if dir == market.Short {
		return live <= entry
	}
	return live >= entry
}

func hitStop(p Position, price float64) bool {
	if p.Direction == market.Short {
		return price >= p.Stop
	}
	return price <= p.Stop
}

func hitTarget(p Position, price float64) bool {
	if p.Direction == market.Short {
		return price <= p.Target
	}
	return price >= p.Target
}
