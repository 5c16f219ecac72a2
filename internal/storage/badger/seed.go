package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

// VariableEntry represents one variable in variables.toml
// Format:
// [key_name]
// value = "some-value"
// description = "optional description"
type VariableEntry struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// contactSeedFile is the structure of contacts.toml
type contactSeedFile struct {
	Contacts []models.Contact `toml:"contacts"`
}

// dealSeedFile is the structure of deals.toml
type dealSeedFile struct {
	Deals []models.Deal `toml:"deals"`
}

// LoadSeedData loads seed files from the configured directory. Missing
// files are skipped; a missing directory is not an error since seeding is
// optional in production.
func (m *Manager) LoadSeedData(ctx context.Context, dirPath string) error {
	if info, err := os.Stat(dirPath); err != nil || !info.IsDir() {
		m.logger.Debug().Str("dir", dirPath).Msg("Seed directory not found, skipping seed load")
		return nil
	}

	m.logger.Debug().Str("dir", dirPath).Msg("Loading seed data")

	if err := m.loadVariables(ctx, filepath.Join(dirPath, "variables.toml")); err != nil {
		return err
	}
	if err := m.loadContacts(ctx, filepath.Join(dirPath, "contacts.toml")); err != nil {
		return err
	}
	if err := m.loadDeals(ctx, filepath.Join(dirPath, "deals.toml")); err != nil {
		return err
	}
	return nil
}

// loadVariables loads key/value pairs (API keys and other secrets) into
// the KV store. Existing keys are not overwritten.
func (m *Manager) loadVariables(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read variables file: %w", err)
	}

	var entries map[string]VariableEntry
	if err := toml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse variables file %s: %w", path, err)
	}

	loaded, skipped := 0, 0
	for key, entry := range entries {
		if _, err := m.kv.Get(ctx, key); err == nil {
			skipped++
			continue
		}
		if err := m.kv.Set(ctx, key, entry.Value, entry.Description); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Failed to load variable")
			continue
		}
		loaded++
	}

	m.logger.Debug().
		Int("loaded", loaded).
		Int("skipped", skipped).
		Msg("Variables loaded from seed file")
	return nil
}

// loadContacts loads contacts.toml, generating ids for entries without one
func (m *Manager) loadContacts(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read contacts seed file: %w", err)
	}

	var file contactSeedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse contacts seed file %s: %w", path, err)
	}

	loaded := 0
	for i := range file.Contacts {
		contact := file.Contacts[i]
		if contact.ID == "" {
			contact.ID = common.NewContactID()
		}
		if err := m.contact.SaveContact(ctx, &contact); err != nil {
			m.logger.Warn().Err(err).Str("name", contact.Name).Msg("Failed to load seed contact")
			continue
		}
		loaded++
	}

	m.logger.Info().Int("loaded", loaded).Msg("Seed contacts loaded")
	return nil
}

// loadDeals loads deals.toml, generating ids for entries without one
func (m *Manager) loadDeals(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read deals seed file: %w", err)
	}

	var file dealSeedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse deals seed file %s: %w", path, err)
	}

	loaded := 0
	for i := range file.Deals {
		deal := file.Deals[i]
		if deal.ID == "" {
			deal.ID = common.NewDealID()
		}
		if deal.Stage == "" {
			deal.Stage = models.DealStageLead
		}
		if err := m.deal.SaveDeal(ctx, &deal); err != nil {
			m.logger.Warn().Err(err).Str("name", deal.Name).Msg("Failed to load seed deal")
			continue
		}
		loaded++
	}

	m.logger.Info().Int("loaded", loaded).Msg("Seed deals loaded")
	return nil
}
