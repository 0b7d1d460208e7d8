package wifi

import "sort"

// SortByStrength sorts observations in place, strongest first.
// Ties keep their scan order.
func SortByStrength(observations []Observation) {
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].RSSI > observations[j].RSSI
	})
}

// RankCandidates returns the candidates that are visible in the scan, ordered
// by the strength of the strongest observation of their SSID. When several
// candidates share an SSID, the earliest one wins.
func RankCandidates(observations []Observation, candidates []Credential) []Credential {
	best := make(map[string]int)
	for _, o := range observations {
		if rssi, ok := best[o.SSID]; !ok || o.RSSI > rssi {
			best[o.SSID] = o.RSSI
		}
	}

	seen := make(map[string]bool)
	var ranked []Credential
	for _, c := range candidates {
		if _, visible := best[c.SSID]; !visible || seen[c.SSID] {
			continue
		}
		seen[c.SSID] = true
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return best[ranked[i].SSID] > best[ranked[j].SSID]
	})
	return ranked
}
