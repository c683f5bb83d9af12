package ingest

// ProgressFunc is called as documents complete, with the number processed so
// far, the total, and the key of the document just finished.
type ProgressFunc func(current, total int, documentKey string)

// ChunkSummary describes one written chunk for progress reporting.
type ChunkSummary struct {
	ID    int64
	Title string
	Words int
}

// DocumentResult is the outcome of ingesting a single document.
type DocumentResult struct {
	Key      string
	Chunks   []ChunkSummary
	Written  int
	Warnings []string
	Err      error
}

// Result is the outcome of a multi-document ingestion run. A failed document
// never stops the run; its error is recorded here.
type Result struct {
	Documents   []DocumentResult
	TotalChunks int
}

// Failed returns the results of documents that did not ingest cleanly.
func (r *Result) Failed() []DocumentResult {
	var failed []DocumentResult
	for _, d := range r.Documents {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// ReembedResult is the outcome of a re-embedding sweep.
type ReembedResult struct {
	Total    int
	Updated  int
	Failed   int
	Warnings []string
	Errors   []error
}
