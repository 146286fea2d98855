// Package ongoing holds the transient detection snapshots consumed by the
// trigger engine. Ongoings are produced by an external detection pipeline,
// cached with a short TTL, and packed per evaluation tick; nothing in this
// package is ever persisted.
package ongoing

// PersonSnapshot is one currently-tracked person as reported by the
// detection pipeline.
type PersonSnapshot struct {
	ID              string   `json:"id"`
	ProfileID       string   `json:"profile_id"`
	ActivityID      string   `json:"activity_id"`
	ProfileGroupIDs []string `json:"profile_group_ids"`
	MatchScore      float64  `json:"match_score"`
	FaceBestShotID  string   `json:"face_best_shot"`
	BodyBestShotID  string   `json:"body_best_shot"`
}

// Ongoing is a raw cache entry: one person at one camera/location.
type Ongoing struct {
	CameraID         string         `json:"camera_id"`
	LocationID       string         `json:"location_id"`
	AttentionAreaIDs []string       `json:"attention_area_ids"`
	AreaTypeIDs      []string       `json:"area_type_ids"`
	Person           PersonSnapshot `json:"person"`
}

// PackedOngoing groups ongoings by (camera, location) for batch evaluation.
type PackedOngoing struct {
	CameraID         string           `json:"camera_id"`
	LocationIDs      []string         `json:"location_ids"`
	AttentionAreaIDs []string         `json:"attention_area_ids"`
	AreaTypeIDs      []string         `json:"area_type_ids"`
	Persons          []PersonSnapshot `json:"persons"`
}

// Pack groups raw ongoings by their (camera, location) key, preserving the
// order in which keys first appear. Area id lists are merged without
// duplicates.
func Pack(ongoings []Ongoing) []PackedOngoing {
	type key struct {
		camera   string
		location string
	}

	index := make(map[key]int)
	var packed []PackedOngoing

	for i := range ongoings {
		o := &ongoings[i]
		k := key{camera: o.CameraID, location: o.LocationID}

		pos, ok := index[k]
		if !ok {
			pos = len(packed)
			index[k] = pos
			packed = append(packed, PackedOngoing{
				CameraID:    o.CameraID,
				LocationIDs: []string{o.LocationID},
			})
		}

		p := &packed[pos]
		p.AttentionAreaIDs = mergeIDs(p.AttentionAreaIDs, o.AttentionAreaIDs)
		p.AreaTypeIDs = mergeIDs(p.AreaTypeIDs, o.AreaTypeIDs)
		p.Persons = append(p.Persons, o.Person)
	}

	return packed
}

func mergeIDs(dst, src []string) []string {
	for _, id := range src {
		found := false
		for _, existing := range dst {
			if existing == id {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, id)
		}
	}
	return dst
}
