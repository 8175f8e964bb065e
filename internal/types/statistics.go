package types

// Statistics summarizes store contents for the status command and the
// health endpoint.
type Statistics struct {
	Categories         int `json:"categories"`
	Documents          int `json:"documents"`
	Batches            int `json:"batches"`
	VerifiedBatches    int `json:"verified_batches"`
	ScanRecords        int `json:"scan_records"`
	MatchedScanRecords int `json:"matched_scan_records"`
}
