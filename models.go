package main

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"videonotes-site/config"
	"videonotes-site/database"
	"videonotes-site/runs"
)

// UploadProgress is the byte-progress side channel for one run's upload,
// polled by the browser for the progress bar. Counts only ever grow; it has
// no ordering guarantee relative to the NDJSON event stream.
type UploadProgress struct {
	Loaded    int64     `json:"loaded"`
	Total     int64     `json:"total"`
	StartTime time.Time `json:"startTime"`
}

type ProgressManager struct {
	uploads map[string]*UploadProgress
	mutex   sync.RWMutex
}

func NewProgressManager() *ProgressManager {
	return &ProgressManager{uploads: make(map[string]*UploadProgress)}
}

func (pm *ProgressManager) Update(token string, loaded, total int64) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	if _, exists := pm.uploads[token]; !exists {
		pm.uploads[token] = &UploadProgress{StartTime: time.Now()}
	}
	pm.uploads[token].Loaded = loaded
	pm.uploads[token].Total = total
}

func (pm *ProgressManager) Get(token string) (UploadProgress, bool) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	p, exists := pm.uploads[token]
	if !exists {
		return UploadProgress{}, false
	}
	return *p, true
}

func (pm *ProgressManager) Remove(token string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	delete(pm.uploads, token)
}

var progressManager = NewProgressManager()

func generateToken() string {
	uuidObj := uuid.Must(uuid.NewV7())
	return uuidObj.String()
}

func cleanupOldRuns() {
	log.Debugln("cleanupOldRuns...")
	cutoff := time.Now().AddDate(0, 0, -config.GetRunRetentionDays())
	n, err := runs.PruneOlderThan(cutoff)
	if err != nil {
		log.Errorf("Error pruning old runs: %v", err)
	} else if n > 0 {
		log.Infof("Pruned %d old runs", n)
	}
}

func vacuumDatabase() {
	if err := database.Vacuum(); err != nil {
		log.Errorln(err)
	}
}

func PeriodicCleanup() {
	cleanupOldRuns()
	vacuumDatabase()
	ticker := time.NewTicker(1 * time.Hour)
	for range ticker.C {
		cleanupOldRuns()
		vacuumDatabase()
	}
}
