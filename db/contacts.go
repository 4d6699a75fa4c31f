// ABOUTME: Contact database operations
// ABOUTME: Handles CRUD operations, email lookups, and category links
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/models"
)

const contactColumns = `id, name, email, phone, street, street2, city, zip, state, country_code,
	website, function, lang, comment, is_company, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	var email, phone, street, street2, city, zip, state, country, website, function, lang, comment sql.NullString

	err := row.Scan(
		&c.ID, &c.Name, &email, &phone, &street, &street2, &city, &zip, &state, &country,
		&website, &function, &lang, &comment, &c.IsCompany, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Street = street.String
	c.Street2 = street2.String
	c.City = city.String
	c.Zip = zip.String
	c.State = state.String
	c.CountryCode = country.String
	c.Website = website.String
	c.Function = function.String
	c.Lang = lang.String
	c.Comment = comment.String

	return &c, nil
}

func CreateContact(db *sql.DB, contact *models.Contact) error {
	contact.ID = uuid.New()
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	_, err = tx.Exec(`
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ID.String(), contact.Name, contact.Email, contact.Phone, contact.Street, contact.Street2,
		contact.City, contact.Zip, contact.State, contact.CountryCode, contact.Website, contact.Function,
		contact.Lang, contact.Comment, contact.IsCompany, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	if err := replaceContactCategories(tx, contact.ID, contact.CategoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func GetContact(db *sql.DB, id uuid.UUID) (*models.Contact, error) {
	contact, err := scanContact(db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	contact.CategoryIDs, err = GetContactCategoryIDs(db, contact.ID)
	if err != nil {
		return nil, err
	}

	return contact, nil
}

// FindContactByEmail returns the oldest contact whose email matches case-insensitively.
func FindContactByEmail(db *sql.DB, email string) (*models.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	contact, err := scanContact(db.QueryRow(`
		SELECT `+contactColumns+` FROM contacts
		WHERE LOWER(email) = LOWER(?)
		ORDER BY created_at ASC
		LIMIT 1
	`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by email: %w", err)
	}

	contact.CategoryIDs, err = GetContactCategoryIDs(db, contact.ID)
	if err != nil {
		return nil, err
	}

	return contact, nil
}

func FindContacts(db *sql.DB, query string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	var err error

	if query != "" {
		searchPattern := "%" + strings.ToLower(query) + "%"
		rows, err = db.Query(`
			SELECT `+contactColumns+` FROM contacts
			WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ?
			ORDER BY updated_at DESC
			LIMIT ?
		`, searchPattern, searchPattern, limit)
	} else {
		rows, err = db.Query(`
			SELECT `+contactColumns+` FROM contacts
			ORDER BY updated_at DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range contacts {
		contacts[i].CategoryIDs, err = GetContactCategoryIDs(db, contacts[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return contacts, nil
}

// UpdateContact overwrites every stored field with the given values, categories included.
func UpdateContact(db *sql.DB, contact *models.Contact) error {
	contact.UpdatedAt = time.Now()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	res, err := tx.Exec(`
		UPDATE contacts
		SET name = ?, email = ?, phone = ?, street = ?, street2 = ?, city = ?, zip = ?, state = ?,
			country_code = ?, website = ?, function = ?, lang = ?, comment = ?, is_company = ?, updated_at = ?
		WHERE id = ?
	`, contact.Name, contact.Email, contact.Phone, contact.Street, contact.Street2, contact.City,
		contact.Zip, contact.State, contact.CountryCode, contact.Website, contact.Function, contact.Lang,
		contact.Comment, contact.IsCompany, contact.UpdatedAt, contact.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contact %s not found", contact.ID)
	}

	if err := replaceContactCategories(tx, contact.ID, contact.CategoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func CountContacts(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func GetContactCategoryIDs(db *sql.DB, contactID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Query(`
		SELECT cc.category_id FROM contact_categories cc
		JOIN categories c ON c.id = cc.category_id
		WHERE cc.contact_id = ?
		ORDER BY c.name COLLATE NOCASE
	`, contactID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query contact categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan category id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func replaceContactCategories(tx *sql.Tx, contactID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := tx.Exec(`DELETE FROM contact_categories WHERE contact_id = ?`, contactID.String()); err != nil {
		return fmt.Errorf("failed to clear contact categories: %w", err)
	}

	for _, id := range categoryIDs {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO contact_categories (contact_id, category_id) VALUES (?, ?)
		`, contactID.String(), id.String())
		if err != nil {
			return fmt.Errorf("failed to link category %s: %w", id, err)
		}
	}

	return nil
}
