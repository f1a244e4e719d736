package models

// ODMatrixEntry is one cell of the origin-destination matrix. Derived,
// never persisted; recomputed per query.
type ODMatrixEntry struct {
	OriginZone string `json:"origin_zone"`
	DestZone   string `json:"dest_zone"`
	TimeBucket string `json:"time_bucket,omitempty"` // Only set at zone_time aggregation

	TripCount int `json:"trip_count"`

	// Bucket-midpoint approximations; raw positional values are gone
	TotalDistanceMeters float64 `json:"total_distance_meters"`
	AvgDurationSeconds  float64 `json:"avg_duration_seconds"`

	ModeDistribution map[string]int `json:"mode_distribution"`
	TimeDistribution map[string]int `json:"time_distribution"`
}

// HeatmapEntry is the aggregate for one origin zone
type HeatmapEntry struct {
	ZoneID string `json:"zone_id"`

	// Center reconstructed from the zone id (half-cell offset)
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`

	// Approximate cell radius in meters, for map rendering
	CellRadiusMeters float64 `json:"cell_radius_meters"`

	TripCount          int     `json:"trip_count"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`

	ModeDistribution map[string]int `json:"mode_distribution"`
	TimeHistogram    map[string]int `json:"time_histogram"`
}

// TripChainPattern is an ordered sequence of zone hops mined from one
// pseudonymous user's chains, disclosed only above the k-anonymity
// threshold.
type TripChainPattern struct {
	Pattern   string `json:"pattern"` // e.g. "12_34->12_35|12_35->12_36"
	Frequency int    `json:"frequency"`

	// Averages over whole chains, computed from real per-trip values
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	AvgDistanceMeters  float64 `json:"avg_distance_meters"`

	Modes    []string `json:"modes"`
	Purposes []string `json:"purposes"`
}

// ZoneTransition counts adjacent zone hops across qualifying chains,
// weighted by chain frequency
type ZoneTransition struct {
	FromZone string `json:"from_zone"`
	ToZone   string `json:"to_zone"`
	Count    int    `json:"count"`
}

// ChainMiningResult bundles the chain-pattern products
type ChainMiningResult struct {
	Patterns    []TripChainPattern `json:"patterns"`
	Transitions []ZoneTransition   `json:"transitions"`
}
