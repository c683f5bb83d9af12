package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	chunksTable  = "knowledge_chunks"
	ledgerTable  = "knowledge_versions"
	matchRPCName = "match_knowledge_chunks"
)

// Supabase is the production Store, talking to a Supabase project's
// PostgREST endpoint with a service-role key. The knowledge_chunks and
// knowledge_versions tables and the match_knowledge_chunks function are
// owned by the datastore, not by this pipeline.
type Supabase struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewSupabase creates a Supabase store for the given project URL and
// service-role key.
func NewSupabase(projectURL, serviceKey string) *Supabase {
	return &Supabase{
		baseURL:    strings.TrimRight(projectURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// chunkRow mirrors the knowledge_chunks schema. The embedding travels as a
// JSON-array string, which is the input form pgvector accepts.
type chunkRow struct {
	ID           int64             `json:"id,omitempty"`
	SourceFile   string            `json:"source_file"`
	SectionTitle string            `json:"section_title"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Embedding    string            `json:"embedding,omitempty"`
	IsActive     bool              `json:"is_active"`
	Version      int               `json:"version"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
}

type ledgerRow struct {
	ChunkID    int64      `json:"chunk_id"`
	Action     string     `json:"action"`
	OldContent string     `json:"old_content,omitempty"`
	NewContent string     `json:"new_content,omitempty"`
	ChangedBy  string     `json:"changed_by"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func (s *Supabase) DeactivateChunks(ctx context.Context, sourceDocument string) error {
	params := url.Values{}
	params.Set("source_file", "eq."+sourceDocument)
	params.Set("is_active", "eq.true")

	body := map[string]any{"is_active": false}
	_, err := s.do(ctx, http.MethodPatch, "/rest/v1/"+chunksTable, params, body, "return=minimal")
	if err != nil {
		return fmt.Errorf("deactivate chunks for %s: %w", sourceDocument, err)
	}
	return nil
}

func (s *Supabase) InsertChunks(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		emb, err := encodeEmbedding(c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("encode embedding for %q: %w", c.Title, err)
		}
		rows[i] = chunkRow{
			SourceFile:   c.SourceDocument,
			SectionTitle: c.Title,
			Content:      c.Content,
			Metadata:     c.Metadata,
			Embedding:    emb,
			IsActive:     c.IsActive,
			Version:      c.Version,
		}
	}

	respBody, err := s.do(ctx, http.MethodPost, "/rest/v1/"+chunksTable, nil, rows, "return=representation")
	if err != nil {
		return nil, fmt.Errorf("insert chunks: %w", err)
	}

	var inserted []chunkRow
	if err := json.Unmarshal(respBody, &inserted); err != nil {
		return nil, fmt.Errorf("decode inserted chunks: %w", err)
	}
	if len(inserted) != len(chunks) {
		return nil, fmt.Errorf("inserted %d chunks, expected %d", len(inserted), len(chunks))
	}

	out := make([]Chunk, len(inserted))
	for i, r := range inserted {
		out[i] = r.toChunk()
		// The representation echoes the vector back in pgvector text form;
		// callers keep the vectors they sent.
		out[i].Embedding = chunks[i].Embedding
	}
	return out, nil
}

func (s *Supabase) ActiveChunks(ctx context.Context, ids []int64) ([]Chunk, error) {
	params := url.Values{}
	params.Set("select", "id,source_file,section_title,content,metadata,is_active,version,created_at,updated_at")
	params.Set("is_active", "eq.true")
	params.Set("order", "id.asc")
	if len(ids) > 0 {
		params.Set("id", "in.("+joinIDs(ids)+")")
	}

	respBody, err := s.do(ctx, http.MethodGet, "/rest/v1/"+chunksTable, params, nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetch active chunks: %w", err)
	}

	var rows []chunkRow
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("decode active chunks: %w", err)
	}

	out := make([]Chunk, len(rows))
	for i, r := range rows {
		out[i] = r.toChunk()
	}
	return out, nil
}

func (s *Supabase) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	emb, err := encodeEmbedding(embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	params := url.Values{}
	params.Set("id", "eq."+strconv.FormatInt(id, 10))

	body := map[string]any{"embedding": emb}
	if _, err := s.do(ctx, http.MethodPatch, "/rest/v1/"+chunksTable, params, body, "return=minimal"); err != nil {
		return fmt.Errorf("update embedding for chunk %d: %w", id, err)
	}
	return nil
}

func (s *Supabase) AppendLedger(ctx context.Context, entries []LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]ledgerRow, len(entries))
	for i, e := range entries {
		rows[i] = ledgerRow{
			ChunkID:    e.ChunkID,
			Action:     string(e.Action),
			OldContent: e.OldContent,
			NewContent: e.NewContent,
			ChangedBy:  e.ChangedBy,
		}
	}

	if _, err := s.do(ctx, http.MethodPost, "/rest/v1/"+ledgerTable, nil, rows, "return=minimal"); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}
	return nil
}

func (s *Supabase) LedgerEntries(ctx context.Context, chunkID int64) ([]LedgerEntry, error) {
	params := url.Values{}
	params.Set("chunk_id", "eq."+strconv.FormatInt(chunkID, 10))
	params.Set("order", "created_at.desc")

	respBody, err := s.do(ctx, http.MethodGet, "/rest/v1/"+ledgerTable, params, nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetch ledger for chunk %d: %w", chunkID, err)
	}

	var rows []ledgerRow
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("decode ledger entries: %w", err)
	}

	out := make([]LedgerEntry, len(rows))
	for i, r := range rows {
		out[i] = LedgerEntry{
			ChunkID:    r.ChunkID,
			Action:     LedgerAction(r.Action),
			OldContent: r.OldContent,
			NewContent: r.NewContent,
			ChangedBy:  r.ChangedBy,
		}
		if r.CreatedAt != nil {
			out[i].CreatedAt = *r.CreatedAt
		}
	}
	return out, nil
}

func (s *Supabase) MatchChunks(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Match, error) {
	emb, err := encodeEmbedding(embedding)
	if err != nil {
		return nil, fmt.Errorf("encode query embedding: %w", err)
	}

	body := map[string]any{
		"query_embedding": emb,
		"match_threshold": threshold,
		"match_count":     limit,
	}

	respBody, err := s.do(ctx, http.MethodPost, "/rest/v1/rpc/"+matchRPCName, nil, body, "")
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}

	var rows []struct {
		chunkRow
		Similarity float64 `json:"similarity"`
	}
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, fmt.Errorf("decode match results: %w", err)
	}

	out := make([]Match, len(rows))
	for i, r := range rows {
		out[i] = Match{Chunk: r.chunkRow.toChunk(), Similarity: r.Similarity}
	}
	return out, nil
}

func (s *Supabase) Close() error { return nil }

// do issues one PostgREST request and returns the response body. Any
// non-2xx status is an error carrying the response text.
func (s *Supabase) do(ctx context.Context, method, path string, params url.Values, body any, prefer string) ([]byte, error) {
	endpoint := s.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(string(respBody), 300))
	}
	return respBody, nil
}

func (r chunkRow) toChunk() Chunk {
	c := Chunk{
		ID:             r.ID,
		SourceDocument: r.SourceFile,
		Title:          r.SectionTitle,
		Content:        r.Content,
		Metadata:       r.Metadata,
		IsActive:       r.IsActive,
		Version:        r.Version,
	}
	if r.CreatedAt != nil {
		c.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		c.UpdatedAt = *r.UpdatedAt
	}
	return c
}

// encodeEmbedding renders a vector as a JSON-array string.
func encodeEmbedding(embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
