package matcher

import "skymatch/internal/models"

// CloneRecords returns an independent copy of src. PointRecord holds only
// scalar fields, so copying the values is a deep copy.
func CloneRecords(src []models.PointRecord) []models.PointRecord {
	out := make([]models.PointRecord, len(src))
	copy(out, src)
	return out
}

// recordIndex maps record IDs to positions in an owned slice.
type recordIndex map[string]int

func indexRecords(field string, records []models.PointRecord) (recordIndex, error) {
	idx := make(recordIndex, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, configErr(field, "record at position %d has an empty ID", i)
		}
		if prev, ok := idx[r.ID]; ok {
			return nil, configErr(field, "duplicate ID %q at positions %d and %d", r.ID, prev, i)
		}
		idx[r.ID] = i
	}
	return idx, nil
}
