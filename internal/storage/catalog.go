package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
	"github.com/harborline/hscode/internal/service"
)

// maxLexicalTokens bounds how many query terms participate in a lexical
// search; longer descriptions add noise, not signal.
const maxLexicalTokens = 8

// ImportEntries inserts or replaces catalog entries in a single transaction
// and invalidates the in-memory embedding index.
func (s *SQLiteStorage) ImportEntries(ctx context.Context, entries []model.CatalogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_entries
			(code, description, parent_code, keywords, examples, synonyms, metadata, embedding, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			description = excluded.description,
			parent_code = excluded.parent_code,
			keywords = excluded.keywords,
			examples = excluded.examples,
			synonyms = excluded.synonyms,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			search_text = excluded.search_text
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare catalog insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range entries {
		entry := &entries[i]
		keywords, marshalErr := marshalStrings(entry.Keywords)
		if marshalErr != nil {
			return fmt.Errorf("entry %s: %w", entry.Code, marshalErr)
		}
		examples, marshalErr := marshalStrings(entry.Examples)
		if marshalErr != nil {
			return fmt.Errorf("entry %s: %w", entry.Code, marshalErr)
		}
		synonyms, marshalErr := marshalStrings(entry.Synonyms)
		if marshalErr != nil {
			return fmt.Errorf("entry %s: %w", entry.Code, marshalErr)
		}
		metadata, marshalErr := marshalMetadata(entry.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("entry %s: %w", entry.Code, marshalErr)
		}

		if _, execErr := stmt.ExecContext(ctx,
			entry.Code,
			entry.Description,
			nullable(entry.ParentCode),
			keywords,
			examples,
			synonyms,
			metadata,
			encodeVector(entry.Embedding),
			searchText(entry),
		); execErr != nil {
			return fmt.Errorf("failed to import entry %s: %w", entry.Code, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog import: %w", err)
	}

	s.indexMu.Lock()
	s.loaded = false
	s.index = nil
	s.indexMu.Unlock()

	return nil
}

// GetEntry returns the catalog entry for a code, including its direct
// children. Missing codes return common.ErrNotFound.
func (s *SQLiteStorage) GetEntry(ctx context.Context, code string) (*model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	entry, err := s.getEntryTx(ctx, s.db, code)
	if err != nil {
		return nil, err
	}

	children, err := s.childCodes(ctx, entry.Code)
	if err != nil {
		return nil, err
	}
	entry.Children = children

	descendants, err := s.Descendants(ctx, entry.Code)
	if err != nil {
		return nil, err
	}
	entry.Descendants = descendants

	return entry, nil
}

// Descendants returns every code strictly below the given code in the
// hierarchy, ordered by code ascending.
func (s *SQLiteStorage) Descendants(ctx context.Context, code string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code FROM catalog_entries
		WHERE code LIKE ? || '%' AND code != ?
		ORDER BY code ASC
	`, code, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get descendants of %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var c string
		if scanErr := rows.Scan(&c); scanErr != nil {
			return nil, fmt.Errorf("failed to scan descendant code: %w", scanErr)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (s *SQLiteStorage) getEntryTx(ctx context.Context, q queryable, code string) (*model.CatalogEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT code, description, parent_code, keywords, examples, synonyms, metadata, embedding
		FROM catalog_entries
		WHERE code = ?
	`, code)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: catalog entry %s", common.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return entry, nil
}

// SearchLexical returns entries whose description, keywords, synonyms or
// examples contain terms of the query. Results are ordered by the number of
// matching terms descending, ties broken by code ascending.
func (s *SQLiteStorage) SearchLexical(ctx context.Context, query string, limit int) ([]model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	tokens := lexicalTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	clauses := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, token := range tokens {
		clauses[i] = "instr(search_text, ?) > 0"
		args[i] = token
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT code, description, parent_code, keywords, examples, synonyms, metadata, embedding
		FROM catalog_entries
		WHERE %s
		ORDER BY code ASC
	`, strings.Join(clauses, " OR ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		entry model.CatalogEntry
		hits  int
	}
	var matches []scored

	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", scanErr)
		}
		hits := 0
		text := searchText(entry)
		for _, token := range tokens {
			if strings.Contains(text, token) {
				hits++
			}
		}
		matches = append(matches, scored{entry: *entry, hits: hits})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog entries: %w", err)
	}

	// Stable: the SQL ordering already broke ties by code.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].hits > matches[j].hits
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	entries := make([]model.CatalogEntry, len(matches))
	for i, m := range matches {
		entries[i] = m.entry
	}
	return entries, nil
}

// NearestNeighbors scans the in-memory embedding index with cosine similarity
// and returns the k closest codes, similarity normalized to [0,1], ties
// broken by code ascending.
func (s *SQLiteStorage) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]service.SearchHit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	hits := make([]service.SearchHit, 0, len(s.index))
	for _, iv := range s.index {
		sim, ok := cosineSimilarity(vector, iv.vector)
		if !ok {
			continue
		}
		hits = append(hits, service.SearchHit{Code: iv.code, Similarity: (sim + 1) / 2})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Code < hits[j].Code
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Children returns the direct children of a code, ordered by code ascending.
func (s *SQLiteStorage) Children(ctx context.Context, code string) ([]model.CatalogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, description, parent_code, keywords, examples, synonyms, metadata, embedding
		FROM catalog_entries
		WHERE parent_code = ?
		ORDER BY code ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get children of %s: %w", code, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CatalogEntry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", scanErr)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}
	return entries, nil
}

// EntryCount reports how many catalog entries are loaded.
func (s *SQLiteStorage) EntryCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) childCodes(ctx context.Context, code string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code FROM catalog_entries WHERE parent_code = ? ORDER BY code ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get child codes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var c string
		if scanErr := rows.Scan(&c); scanErr != nil {
			return nil, fmt.Errorf("failed to scan child code: %w", scanErr)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// ensureIndex loads every stored embedding into memory once. Imports
// invalidate the index so the next search reloads it.
func (s *SQLiteStorage) ensureIndex(ctx context.Context) error {
	s.indexMu.RLock()
	loaded := s.loaded
	s.indexMu.RUnlock()
	if loaded {
		return nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.loaded {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, embedding FROM catalog_entries
		WHERE embedding IS NOT NULL
		ORDER BY code ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to load embedding index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var index []indexedVector
	for rows.Next() {
		var code string
		var blob []byte
		if scanErr := rows.Scan(&code, &blob); scanErr != nil {
			return fmt.Errorf("failed to scan embedding: %w", scanErr)
		}
		vector := decodeVector(blob)
		if len(vector) == 0 {
			continue
		}
		index = append(index, indexedVector{code: code, vector: vector})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate embeddings: %w", err)
	}

	s.index = index
	s.loaded = true
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	var parent, keywords, examples, synonyms, metadata sql.NullString
	var embedding []byte

	if err := row.Scan(
		&entry.Code,
		&entry.Description,
		&parent,
		&keywords,
		&examples,
		&synonyms,
		&metadata,
		&embedding,
	); err != nil {
		return nil, err
	}

	entry.ParentCode = parent.String
	entry.Embedding = decodeVector(embedding)

	var err error
	if entry.Keywords, err = unmarshalStrings(keywords); err != nil {
		return nil, fmt.Errorf("entry %s: keywords: %w", entry.Code, err)
	}
	if entry.Examples, err = unmarshalStrings(examples); err != nil {
		return nil, fmt.Errorf("entry %s: examples: %w", entry.Code, err)
	}
	if entry.Synonyms, err = unmarshalStrings(synonyms); err != nil {
		return nil, fmt.Errorf("entry %s: synonyms: %w", entry.Code, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("entry %s: metadata: %w", entry.Code, err)
		}
	}

	return &entry, nil
}

// searchText folds an entry's searchable text into one lowercase string.
func searchText(entry *model.CatalogEntry) string {
	parts := make([]string, 0, 1+len(entry.Keywords)+len(entry.Synonyms)+len(entry.Examples))
	parts = append(parts, entry.Description)
	parts = append(parts, entry.Keywords...)
	parts = append(parts, entry.Synonyms...)
	parts = append(parts, entry.Examples...)
	return strings.ToLower(strings.Join(parts, " "))
}

// lexicalTokens splits a query into lowercase terms worth matching.
func lexicalTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()\"'")
		if len(f) < 3 {
			continue
		}
		tokens = append(tokens, f)
		if len(tokens) == maxLexicalTokens {
			break
		}
	}
	return tokens
}

// cosineSimilarity returns the cosine of the angle between two vectors, or
// false when the dimensions differ or either vector is zero.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// encodeVector serializes a float32 vector as a little-endian BLOB.
func encodeVector(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a little-endian BLOB back into a float32 vector.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vector
}

func marshalStrings(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalStrings(value sql.NullString) ([]string, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func marshalMetadata(metadata map[string]string) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
