package database

import "harvestlog/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PlatformAdmin{},
		&models.Church{},
		&models.Branch{},
		&models.Membership{},
		&models.AccessRequest{},
		&models.Soul{},
		&models.ApprovalLog{},
	}
}
