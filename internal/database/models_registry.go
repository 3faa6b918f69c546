package database

import "fambam/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Account{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
	}
}
