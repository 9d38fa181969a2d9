package models

import "time"

// SystemMetrics summarises process level instrumentation for the JSON metrics endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	SnapshotLoads            uint64    `json:"snapshotLoads"`
	AverageSnapshotLoadMs    float64   `json:"averageSnapshotLoadMs"`
	DroppedSubmissions       uint64    `json:"droppedSubmissions"`
	SupersededSubmissions    uint64    `json:"supersededSubmissions"`
	ExportsGenerated         uint64    `json:"exportsGenerated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
