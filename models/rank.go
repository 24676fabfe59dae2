package models

// RankBand maps an MMR range to an externally assigned role. Bands are
// ordered by MinMMR and non-overlapping by convention; overlap is a
// configuration mistake, not something this service validates.
type RankBand struct {
	TenantID  int    `json:"tenant_id"`
	QueueName string `json:"queue_name"`
	Name      string `json:"name"`
	MinMMR    int    `json:"min_mmr"`
	MaxMMR    int    `json:"max_mmr"`
	RoleID    string `json:"role_id"`
}

// Contains reports whether the given MMR falls inside the band.
func (b RankBand) Contains(mmr int) bool {
	return mmr >= b.MinMMR && mmr <= b.MaxMMR
}
