package sync

import (
	"sort"
	"time"
)

// DedupWindow is how far apart two creation instants may lie for an
// unsynced local survey and a remote survey to be considered the same
// record created twice. The window covers the race where a survey is
// created moments before connectivity drops and the confirmation is lost.
const DedupWindow = 60 * time.Second

// dedupKey is the identity heuristic for surveys that lack a shared id:
// same ship, same client, same survey date.
type dedupKey struct {
	ship   string
	client string
	date   string
}

func surveyDedupKey(sv *Survey) dedupKey {
	return dedupKey{ship: sv.ShipName, client: sv.ClientName, date: sv.SurveyDate}
}

// MergeSurveys combines the local cache with the authoritative remote
// listing into one deduplicated view, newest first.
//
// Rules, in order:
//   - A remote survey replaces the local survey with the same id. The
//     server copy wins; local ids are the idempotency keys, so an id match
//     is definitive.
//   - An unsynced local survey whose ship, client and survey date match a
//     remote survey, and whose creation instants lie within DedupWindow,
//     is treated as a duplicate of that remote survey and suppressed. This
//     catches creates that reached the server but whose confirmation never
//     came back.
//   - Everything else is kept: dirty local surveys the server has not seen
//     yet, and remote surveys created on other devices.
func MergeSurveys(local, remote []*Survey) []*Survey {
	byID := make(map[string]*Survey, len(remote))
	byKey := make(map[dedupKey][]*Survey, len(remote))

	merged := make([]*Survey, 0, len(local)+len(remote))

	for _, rv := range remote {
		byID[rv.ID] = rv
		byKey[surveyDedupKey(rv)] = append(byKey[surveyDedupKey(rv)], rv)
		merged = append(merged, rv)
	}

	for _, lv := range local {
		if _, ok := byID[lv.ID]; ok {
			continue
		}

		if lv.NeedsSync && isRemoteDuplicate(lv, byKey[surveyDedupKey(lv)]) {
			continue
		}

		merged = append(merged, lv)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		// Creation instant primary; remote rows from older schema versions
		// may lack it, then the survey date decides.
		if merged[i].CreatedAt != merged[j].CreatedAt {
			return merged[i].CreatedAt > merged[j].CreatedAt
		}

		return merged[i].SurveyDate > merged[j].SurveyDate
	})

	return merged
}

// isRemoteDuplicate reports whether any of the key-matched remote surveys
// was created within DedupWindow of the local one.
func isRemoteDuplicate(local *Survey, candidates []*Survey) bool {
	for _, rv := range candidates {
		delta := local.CreatedAt - rv.CreatedAt
		if delta < 0 {
			delta = -delta
		}

		if delta <= int64(DedupWindow) {
			return true
		}
	}

	return false
}
