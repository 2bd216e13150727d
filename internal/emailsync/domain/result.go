package domain

// SyncResult aggregates the outcome of one sync run
type SyncResult struct {
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
