// ABOUTME: Tests for contact and category database operations
// ABOUTME: Covers create, email lookup, full update, and category links
package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetContact(t *testing.T) {
	db := openTestDB(t)

	kunde, err := EnsureCategory(db, "Kunde")
	require.NoError(t, err)

	contact := &models.Contact{
		Name:        "Anna Keller",
		Email:       "Anna.Keller@Example.com",
		Phone:       "+41 41 123 45 67",
		City:        "Zug",
		CountryCode: "CH",
		Lang:        "de_DE",
		CategoryIDs: []uuid.UUID{kunde.ID},
	}
	require.NoError(t, CreateContact(db, contact))
	assert.NotEqual(t, uuid.Nil, contact.ID)

	got, err := GetContact(db, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Anna Keller", got.Name)
	assert.Equal(t, "Zug", got.City)
	assert.False(t, got.IsCompany)
	assert.Equal(t, []uuid.UUID{kunde.ID}, got.CategoryIDs)
}

func TestGetContactNotFound(t *testing.T) {
	db := openTestDB(t)

	got, err := GetContact(db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindContactByEmail(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, CreateContact(db, &models.Contact{Name: "Anna", Email: "Anna.Keller@Example.com"}))

	t.Run("case insensitive", func(t *testing.T) {
		got, err := FindContactByEmail(db, "anna.keller@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Anna", got.Name)
	})

	t.Run("missing", func(t *testing.T) {
		got, err := FindContactByEmail(db, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty email", func(t *testing.T) {
		got, err := FindContactByEmail(db, "  ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUpdateContactReplacesCategories(t *testing.T) {
	db := openTestDB(t)

	kunde, err := EnsureCategory(db, "Kunde")
	require.NoError(t, err)
	edv, err := EnsureCategory(db, "EDV")
	require.NoError(t, err)

	contact := &models.Contact{Name: "Firma AG", CategoryIDs: []uuid.UUID{kunde.ID}}
	require.NoError(t, CreateContact(db, contact))

	contact.IsCompany = true
	contact.Website = "https://firma.ch"
	contact.CategoryIDs = []uuid.UUID{kunde.ID, edv.ID}
	require.NoError(t, UpdateContact(db, contact))

	got, err := GetContact(db, contact.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompany)
	assert.Equal(t, "https://firma.ch", got.Website)
	assert.ElementsMatch(t, []uuid.UUID{kunde.ID, edv.ID}, got.CategoryIDs)
}

func TestUpdateContactMissing(t *testing.T) {
	db := openTestDB(t)

	err := UpdateContact(db, &models.Contact{ID: uuid.New(), Name: "Ghost"})
	assert.Error(t, err)
}

func TestFindContacts(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, CreateContact(db, &models.Contact{Name: "Anna Keller", Email: "anna@example.com"}))
	require.NoError(t, CreateContact(db, &models.Contact{Name: "Hans Muster", Email: "hans@muster.ch"}))

	all, err := FindContacts(db, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matches, err := FindContacts(db, "MUSTER", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Hans Muster", matches[0].Name)

	count, err := CountContacts(db)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEnsureCategoryIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)

	first, err := EnsureCategory(db, "Open Source")
	require.NoError(t, err)
	second, err := EnsureCategory(db, "open source")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = EnsureCategory(db, "   ")
	assert.Error(t, err)

	all, err := ListCategories(db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCategoryUsageAndPairs(t *testing.T) {
	db := openTestDB(t)

	kunde, err := EnsureCategory(db, "Kunde")
	require.NoError(t, err)
	edv, err := EnsureCategory(db, "EDV")
	require.NoError(t, err)
	_, err = EnsureCategory(db, "Arzt")
	require.NoError(t, err)

	require.NoError(t, CreateContact(db, &models.Contact{Name: "A", CategoryIDs: []uuid.UUID{kunde.ID, edv.ID}}))
	require.NoError(t, CreateContact(db, &models.Contact{Name: "B", CategoryIDs: []uuid.UUID{kunde.ID}}))

	usage, err := GetCategoryUsage(db)
	require.NoError(t, err)
	require.Len(t, usage, 3)
	assert.Equal(t, "Kunde", usage[0].Category.Name)
	assert.Equal(t, 2, usage[0].Contacts)
	assert.Equal(t, 0, usage[2].Contacts)

	pairs, err := GetCategoryPairs(db)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 1, pairs[0].Contacts)
	assert.ElementsMatch(t, []string{"Kunde", "EDV"}, []string{pairs[0].A, pairs[0].B})
}
