package database

import (
	"fmt"
	"log/slog"
	"time"

	"gestion-backend/internal/config"
	"gestion-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Models liste les tables gérées par AutoMigrate, dans l'ordre des dépendances.
func Models() []any {
	return []any{
		&models.User{},
		&models.AuditLog{},
		&models.Client{},
		&models.Fournisseur{},
		&models.Produit{},
		&models.Chauffeur{},
		&models.BonCommande{},
		&models.BonLivraison{},
		&models.LigneLivraison{},
		&models.PaiementClient{},
		&models.PaiementFournisseur{},
	}
}

func Init(cfg *config.Config, logger *slog.Logger) error {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connexion à la base impossible: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("pool sql indisponible: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	logger.Info("base de données connectée, migration terminée")
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}
