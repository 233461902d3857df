package models

import "time"

// SystemMetrics is a point-in-time summary of request, cache and solver activity.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	Constructions            uint64    `json:"constructions"`
	UnplacedSessions         uint64    `json:"unplacedSessions"`
	RepairsSucceeded         uint64    `json:"repairsSucceeded"`
	RepairsFailed            uint64    `json:"repairsFailed"`
	AverageRepairSteps       float64   `json:"averageRepairSteps"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
