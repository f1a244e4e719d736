package config

import (
	"os"
	"strconv"
)

// Config 应用配置
type Config struct {
	Port            string
	DBPath          string
	PseudonymPepper string // HMAC pepper for pseudonymization, held outside the DB
	Anonymization   AnonymizationConfig
}

// AnonymizationConfig holds all tunables for the anonymization pipeline.
// Passed into each component at construction; components never read
// package-level state.
type AnonymizationConfig struct {
	GridSizeDegrees    float64   // Zone cell edge in degrees
	TimeBinMinutes     int       // Time-of-day bucket width
	DurationBoundaries []float64 // Seconds, ascending
	DistanceBoundaries []float64 // Meters, ascending
	KThreshold         int       // Minimum group size for disclosure
	ChainGapMinutes    int       // Max gap between consecutive trips in one chain
	Epsilon            float64   // Laplace noise scale = 1/epsilon
	WorkerCount        int       // Orchestrator worker pool size
}

// DefaultAnonymization returns the default pipeline tunables
func DefaultAnonymization() AnonymizationConfig {
	return AnonymizationConfig{
		GridSizeDegrees:    0.01,
		TimeBinMinutes:     15,
		DurationBoundaries: []float64{300, 900, 1800, 3600, 7200},
		DistanceBoundaries: []float64{500, 1000, 2000, 5000, 10000, 20000},
		KThreshold:         5,
		ChainGapMinutes:    120,
		Epsilon:            1.0,
		WorkerCount:        4,
	}
}

// Load 加载配置
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/analytics/analytics.db"
	}

	pepper := os.Getenv("PSEUDONYM_PEPPER")
	if pepper == "" {
		pepper = "dev-only-pepper-change-in-production"
	}

	anon := DefaultAnonymization()
	if v := os.Getenv("K_THRESHOLD"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			anon.KThreshold = k
		}
	}
	if v := os.Getenv("DP_EPSILON"); v != "" {
		if e, err := strconv.ParseFloat(v, 64); err == nil && e > 0 {
			anon.Epsilon = e
		}
	}
	if v := os.Getenv("GRID_SIZE_DEGREES"); v != "" {
		if g, err := strconv.ParseFloat(v, 64); err == nil && g > 0 {
			anon.GridSizeDegrees = g
		}
	}
	if v := os.Getenv("TIME_BIN_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 && m <= 60 {
			anon.TimeBinMinutes = m
		}
	}
	if v := os.Getenv("CHAIN_GAP_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			anon.ChainGapMinutes = m
		}
	}

	return &Config{
		Port:            port,
		DBPath:          dbPath,
		PseudonymPepper: pepper,
		Anonymization:   anon,
	}
}
