package runs

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"videonotes-site/analysis"
	"videonotes-site/database"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Run is the persisted record of one analysis. Only metadata and the final
// result are stored; the uploaded video bytes never touch disk here.
type Run struct {
	gorm.Model
	Token      string `gorm:"uniqueIndex"`
	SessionID  string `gorm:"index"`
	SourceKind string
	SourceName string
	SizeBytes  int64
	ModelID    string
	Status     Status
	Transcript string
	Notes      string // newline-joined
	CostUSD    float64
	Error      string
}

func (r *Run) NoteList() []string {
	if r.Notes == "" {
		return []string{}
	}
	return strings.Split(r.Notes, "\n")
}

func Create(run *Run) error {
	db := database.Get()
	run.Status = StatusPending
	return db.Create(run).Error
}

func SetStatus(token string, status Status) error {
	db := database.Get()
	log.Debugln("run", token, "status ->", status)
	return db.Model(&Run{}).Where("token = ?", token).Update("status", status).Error
}

func Complete(token string, result *analysis.Result) error {
	db := database.Get()
	log.Debugln("run", token, "completed")
	return db.Model(&Run{}).Where("token = ?", token).Updates(map[string]interface{}{
		"status":     StatusCompleted,
		"transcript": result.Transcript,
		"notes":      strings.Join(result.Notes, "\n"),
		"cost_usd":   result.EstimatedCostUSD,
	}).Error
}

func Fail(token string, message string) error {
	db := database.Get()
	log.Debugln("run", token, "failed:", message)
	return db.Model(&Run{}).Where("token = ?", token).Updates(map[string]interface{}{
		"status": StatusFailed,
		"error":  message,
	}).Error
}

func Get(token string) (Run, error) {
	db := database.Get()
	var run Run
	err := db.First(&run, "token = ?", token).Error
	return run, err
}

// ForSession lists a browser session's runs, newest first.
func ForSession(sessionID string) ([]Run, error) {
	db := database.Get()
	var result []Run
	err := db.Where("session_id = ?", sessionID).Order("created_at DESC").Find(&result).Error
	return result, err
}

func Delete(token, sessionID string) error {
	db := database.Get()
	return db.Unscoped().Where("token = ? AND session_id = ?", token, sessionID).Delete(&Run{}).Error
}

// PruneOlderThan hard-deletes runs created before cutoff and reports how many
// went away.
func PruneOlderThan(cutoff time.Time) (int64, error) {
	db := database.Get()
	result := db.Unscoped().Where("created_at < ?", cutoff).Delete(&Run{})
	return result.RowsAffected, result.Error
}
