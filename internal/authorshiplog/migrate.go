package authorshiplog

import "github.com/git-ai/git-ai/internal/authormodel"

// migrateLegacyIDs rehashes every pre-upgrade 7-hex-character
// Attribution ID in log to the current 16-character content hash,
// rewriting attestations[].hash and metadata.prompts keys in the same
// pass. Reports whether any rewrite happened, so the caller can
// persist the migration instead of leaving legacy ids to be
// re-migrated (and re-hashed, wastefully) on every future load.
func migrateLegacyIDs(log *authormodel.AuthorshipLog) bool {
	remap := make(map[authormodel.AttributionID]authormodel.AttributionID)

	for oldID, rec := range log.Metadata.Prompts {
		if !oldID.IsLegacy() {
			continue
		}
		newID := authormodel.NewAttributionID(rec.Agent)
		remap[oldID] = newID
	}
	if len(remap) == 0 {
		return false
	}

	for oldID, newID := range remap {
		rec := log.Metadata.Prompts[oldID]
		rec.ID = newID
		delete(log.Metadata.Prompts, oldID)
		log.Metadata.Prompts[newID] = rec
	}

	for fi := range log.Attestations {
		for ei, entry := range log.Attestations[fi].Entries {
			if newID, ok := remap[entry.Hash]; ok {
				log.Attestations[fi].Entries[ei].Hash = newID
			}
		}
	}

	return true
}
