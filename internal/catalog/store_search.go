package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ReplaceSearchEntry swaps in the search row and token postings for a
// document atomically. The index stage calls this once per successful run.
func (s *Store) ReplaceSearchEntry(ctx context.Context, documentID int64, title, docClass string, postings map[string]int) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin search tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM search_postings WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clear postings: %w", err)
		}

		tokenCount := 0
		terms := make([]string, 0, len(postings))
		for term, tf := range postings {
			tokenCount += tf
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO search_postings (term, document_id, tf) VALUES (?, ?, ?)`,
				term,
				documentID,
				postings[term],
			); err != nil {
				return fmt.Errorf("insert posting %q: %w", term, err)
			}
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO search_documents (document_id, title, doc_class, token_count, indexed_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(document_id) DO UPDATE
             SET title = excluded.title, doc_class = excluded.doc_class,
                 token_count = excluded.token_count, indexed_at = excluded.indexed_at`,
			documentID,
			title,
			nullableString(docClass),
			tokenCount,
			timestamp(time.Now().UTC()),
		); err != nil {
			return fmt.Errorf("upsert search document: %w", err)
		}

		return tx.Commit()
	})
}

// Search returns indexed documents matching every given term, scored by
// normalized term frequency.
func (s *Store) Search(ctx context.Context, terms []string, limit int) ([]SearchHit, error) {
	ctx = ensureContext(ctx)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	placeholders := makePlaceholders(len(terms))
	args := make([]any, 0, len(terms)+2)
	for _, term := range terms {
		args = append(args, term)
	}
	args = append(args, len(terms), limit)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT p.document_id, d.title, COALESCE(d.doc_class, ''),
                CAST(SUM(p.tf) AS REAL) / MAX(d.token_count, 1) AS score
         FROM search_postings p
         JOIN search_documents d ON d.document_id = p.document_id
         WHERE p.term IN (`+placeholders+`)
         GROUP BY p.document_id
         HAVING COUNT(DISTINCT p.term) = ?
         ORDER BY score DESC
         LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.DocumentID, &hit.Title, &hit.DocClass, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// IndexedCount returns the number of documents present in the search index.
func (s *Store) IndexedCount(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM search_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count indexed documents: %w", err)
	}
	return count, nil
}
