package dto

// SyncStatusResponse reports the live state of the sync subsystem.
type SyncStatusResponse struct {
	Enabled             bool   `json:"enabled"`
	RegistrationWatcher string `json:"registration_watcher"`
	EventWatcher        string `json:"event_watcher"`
	ResyncRunning       bool   `json:"resync_running"`
	LastFullResync      string `json:"last_full_resync,omitempty"`
}

// ResyncResponse is the aggregate outcome of a manual resync.
type ResyncResponse struct {
	Skipped   bool     `json:"skipped"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
}

// BulkMailRequest targets a bulk email at one event's registrants.
type BulkMailRequest struct {
	Event   string `json:"event" binding:"required"`
	JoinURL string `json:"join_url" binding:"required,url"`
}

// BulkMailResponse is the aggregate outcome of a bulk send.
type BulkMailResponse struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed []string `json:"failed,omitempty"`
}
