// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Slider is a named, ordered set of promotional slides.
type Slider struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slide is one stored frame of a slider.
type Slide struct {
	ID          int64  `json:"id"`
	SliderID    int64  `json:"slider_id"`
	Position    int64  `json:"position"`
	ImageRef    string `json:"image_ref"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

const sliderColumns = `id, slug, name, revision, created_at, updated_at`

func scanSlider(row interface{ Scan(...any) error }) (Slider, error) {
	var s Slider
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.Revision, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const listSliders = `SELECT ` + sliderColumns + ` FROM sliders ORDER BY slug`

// ListSliders returns all sliders ordered by slug.
func (q *Queries) ListSliders(ctx context.Context) ([]Slider, error) {
	rows, err := q.db.QueryContext(ctx, listSliders)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Slider
	for rows.Next() {
		s, err := scanSlider(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSliderBySlug = `SELECT ` + sliderColumns + ` FROM sliders WHERE slug = ?`

// GetSliderBySlug returns sql.ErrNoRows when the slider does not exist.
func (q *Queries) GetSliderBySlug(ctx context.Context, slug string) (Slider, error) {
	return scanSlider(q.db.QueryRowContext(ctx, getSliderBySlug, slug))
}

// CreateSliderParams holds the columns written by CreateSlider.
type CreateSliderParams struct {
	Slug      string
	Name      string
	CreatedAt time.Time
}

const createSlider = `
INSERT INTO sliders (slug, name, revision, created_at, updated_at)
VALUES (?, ?, 0, ?, ?)
RETURNING ` + sliderColumns

// CreateSlider inserts an empty slider.
func (q *Queries) CreateSlider(ctx context.Context, arg CreateSliderParams) (Slider, error) {
	ts := arg.CreatedAt.UTC()
	return scanSlider(q.db.QueryRowContext(ctx, createSlider, arg.Slug, arg.Name, ts, ts))
}

const deleteSlidesBySlider = `DELETE FROM slides WHERE slider_id = ?`

const deleteSlider = `DELETE FROM sliders WHERE id = ?`

// DeleteSlider removes a slider and its slides in a single transaction.
func DeleteSlider(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteSlidesBySlider, id); err != nil {
		return fmt.Errorf("deleting slides: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteSlider, id); err != nil {
		return fmt.Errorf("deleting slider: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

const listSlidesBySlider = `
SELECT id, slider_id, position, image_ref, title, description
FROM slides
WHERE slider_id = ?
ORDER BY position, id`

// ListSlidesBySlider returns the slides of a slider in display order.
func (q *Queries) ListSlidesBySlider(ctx context.Context, sliderID int64) ([]Slide, error) {
	rows, err := q.db.QueryContext(ctx, listSlidesBySlider, sliderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Slide
	for rows.Next() {
		var s Slide
		if err := rows.Scan(&s.ID, &s.SliderID, &s.Position, &s.ImageRef, &s.Title, &s.Description); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// SlideInput is one slide passed to ReplaceSlides.
type SlideInput struct {
	ImageRef    string
	Title       string
	Description string
}

const insertSlide = `
INSERT INTO slides (slider_id, position, image_ref, title, description)
VALUES (?, ?, ?, ?, ?)`

const bumpSliderRevision = `
UPDATE sliders SET revision = revision + 1, updated_at = ? WHERE id = ?`

// ReplaceSlides swaps the whole slide set of a slider in a single transaction
// and bumps its revision. Returns the updated slider.
func ReplaceSlides(ctx context.Context, db *sql.DB, sliderID int64, slides []SlideInput, now time.Time) (Slider, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Slider{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteSlidesBySlider, sliderID); err != nil {
		return Slider{}, fmt.Errorf("clearing slides: %w", err)
	}
	for i, s := range slides {
		if _, err := tx.ExecContext(ctx, insertSlide, sliderID, i, s.ImageRef, s.Title, s.Description); err != nil {
			return Slider{}, fmt.Errorf("inserting slide %d: %w", i, err)
		}
	}
	res, err := tx.ExecContext(ctx, bumpSliderRevision, now.UTC(), sliderID)
	if err != nil {
		return Slider{}, fmt.Errorf("bumping revision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Slider{}, sql.ErrNoRows
	}

	slider, err := scanSlider(tx.QueryRowContext(ctx, `SELECT `+sliderColumns+` FROM sliders WHERE id = ?`, sliderID))
	if err != nil {
		return Slider{}, fmt.Errorf("reloading slider: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Slider{}, fmt.Errorf("committing: %w", err)
	}
	return slider, nil
}
