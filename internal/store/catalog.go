package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/crewplan/crewplan/internal/models"
)

// CreateSkill inserts a skill into the catalog.
func (s *Store) CreateSkill(name string) (*models.CatalogItem, error) {
	return s.createCatalogItem("skills", name)
}

// ListSkills returns the skill catalog ordered by name.
func (s *Store) ListSkills() ([]models.CatalogItem, error) {
	return s.listCatalog("skills")
}

// DeleteSkill removes a skill; pivot rows cascade.
func (s *Store) DeleteSkill(id string) (bool, error) {
	return s.deleteCatalogItem("skills", id)
}

// CreateDomain inserts a domain into the catalog.
func (s *Store) CreateDomain(name string) (*models.CatalogItem, error) {
	return s.createCatalogItem("domains", name)
}

// ListDomains returns the domain catalog ordered by name.
func (s *Store) ListDomains() ([]models.CatalogItem, error) {
	return s.listCatalog("domains")
}

// DeleteDomain removes a domain; pivot rows cascade.
func (s *Store) DeleteDomain(id string) (bool, error) {
	return s.deleteCatalogItem("domains", id)
}

func (s *Store) createCatalogItem(table, name string) (*models.CatalogItem, error) {
	item := models.CatalogItem{ID: uuid.New().String(), Name: name}
	_, err := s.db.Exec(fmt.Sprintf(`INSERT INTO %s (id, name) VALUES (?, ?)`, table), item.ID, item.Name)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return &item, nil
}

func (s *Store) listCatalog(table string) ([]models.CatalogItem, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) deleteCatalogItem(table, id string) (bool, error) {
	result, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
