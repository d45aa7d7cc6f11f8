package request

// SyncRequest triggers a manual sync.
type SyncRequest struct {
	Source string `json:"source"` // "jgrants", "erad" or "all"
	Force  bool   `json:"force"`
}
