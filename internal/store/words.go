package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/minerva-brain/backend/internal/models"
)

const wordColumns = "id, word, definition, extra_json, active, created_at, updated_at"

func scanWord(row interface{ Scan(...any) error }) (*models.Word, error) {
	var w models.Word
	var extra sql.NullString
	if err := row.Scan(&w.ID, &w.Word, &w.Definition, &extra, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ExtraJSON = nullableString(extra)
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}

// ListWords returns all words ordered by id.
func (d *Duck) ListWords() ([]*models.Word, error) {
	rows, err := d.db.Query("SELECT " + wordColumns + " FROM words ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing words: %w", err)
	}
	defer rows.Close()

	var words []*models.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// ActiveWords returns active words ordered by id.
func (d *Duck) ActiveWords() ([]*models.Word, error) {
	rows, err := d.db.Query("SELECT " + wordColumns + " FROM words WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing active words: %w", err)
	}
	defer rows.Close()

	var words []*models.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// GetWord returns a word by id.
func (d *Duck) GetWord(id int64) (*models.Word, error) {
	w, err := scanWord(d.db.QueryRow("SELECT "+wordColumns+" FROM words WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// GetWordByText returns a word by its unique text.
func (d *Duck) GetWordByText(word string) (*models.Word, error) {
	w, err := scanWord(d.db.QueryRow("SELECT "+wordColumns+" FROM words WHERE word = ?", word))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// CreateWord inserts a word, filling in its ID and timestamps.
// Word text must be unique.
func (d *Duck) CreateWord(w *models.Word) error {
	if existing, err := d.GetWordByText(w.Word); err == nil && existing != nil {
		return ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	ts := now()
	w.CreatedAt = ts
	w.UpdatedAt = ts
	err := d.db.QueryRow(
		`INSERT INTO words (word, definition, extra_json, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		w.Word, w.Definition, w.ExtraJSON, w.Active, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("creating word: %w", err)
	}
	return nil
}

// UpdateWord rewrites a word row. The new word text must not collide with
// another entry.
func (d *Duck) UpdateWord(w *models.Word) error {
	if existing, err := d.GetWordByText(w.Word); err == nil && existing.ID != w.ID {
		return ErrConflict
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	w.UpdatedAt = now()
	res, err := d.db.Exec(
		`UPDATE words SET word = ?, definition = ?, extra_json = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		w.Word, w.Definition, w.ExtraJSON, w.Active, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating word: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWord removes a word by id.
func (d *Duck) DeleteWord(id int64) error {
	res, err := d.db.Exec("DELETE FROM words WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting word: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
