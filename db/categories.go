// ABOUTME: Category database operations
// ABOUTME: Manages the category catalog and per-category contact counts
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/models"
)

func CreateCategory(db *sql.DB, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return fmt.Errorf("category name is required")
	}
	category.ID = uuid.New()
	category.CreatedAt = time.Now()

	_, err := db.Exec(`
		INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)
	`, category.ID.String(), category.Name, category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetCategoryByName looks a category up case-insensitively.
func GetCategoryByName(db *sql.DB, name string) (*models.Category, error) {
	var c models.Category
	err := db.QueryRow(`
		SELECT id, name, created_at FROM categories WHERE name = ? COLLATE NOCASE
	`, strings.TrimSpace(name)).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// EnsureCategory returns the named category, creating it when absent.
func EnsureCategory(db *sql.DB, name string) (*models.Category, error) {
	existing, err := GetCategoryByName(db, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c := &models.Category{Name: name}
	if err := CreateCategory(db, c); err != nil {
		return nil, err
	}
	return c, nil
}

func ListCategories(db *sql.DB) ([]models.Category, error) {
	rows, err := db.Query(`SELECT id, name, created_at FROM categories ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CategoryUsage pairs a category with the number of contacts carrying it.
type CategoryUsage struct {
	Category models.Category
	Contacts int
}

func GetCategoryUsage(db *sql.DB) ([]CategoryUsage, error) {
	rows, err := db.Query(`
		SELECT c.id, c.name, c.created_at, COUNT(cc.contact_id)
		FROM categories c
		LEFT JOIN contact_categories cc ON cc.category_id = c.id
		GROUP BY c.id
		ORDER BY COUNT(cc.contact_id) DESC, c.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var usage []CategoryUsage
	for rows.Next() {
		var u CategoryUsage
		if err := rows.Scan(&u.Category.ID, &u.Category.Name, &u.Category.CreatedAt, &u.Contacts); err != nil {
			return nil, fmt.Errorf("failed to scan category usage: %w", err)
		}
		usage = append(usage, u)
	}

	return usage, rows.Err()
}

// CategoryPair counts contacts that carry both categories.
type CategoryPair struct {
	A, B     string
	Contacts int
}

func GetCategoryPairs(db *sql.DB) ([]CategoryPair, error) {
	rows, err := db.Query(`
		SELECT ca.name, cb.name, COUNT(*)
		FROM contact_categories x
		JOIN contact_categories y ON x.contact_id = y.contact_id AND x.category_id < y.category_id
		JOIN categories ca ON ca.id = x.category_id
		JOIN categories cb ON cb.id = y.category_id
		GROUP BY x.category_id, y.category_id
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []CategoryPair
	for rows.Next() {
		var p CategoryPair
		if err := rows.Scan(&p.A, &p.B, &p.Contacts); err != nil {
			return nil, fmt.Errorf("failed to scan category pair: %w", err)
		}
		pairs = append(pairs, p)
	}

	return pairs, rows.Err()
}
