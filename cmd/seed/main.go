// Seeds a starter category tree and a handful of canonical products with
// common receipt aliases. Safe to run repeatedly: everything is upserted.
package main

import (
	"context"

	"github.com/paragon-scan/paragongo/internal/config"
	"github.com/paragon-scan/paragongo/internal/database"
	"github.com/paragon-scan/paragongo/internal/models"
	"github.com/paragon-scan/paragongo/internal/storage"
	"github.com/paragon-scan/paragongo/internal/textutil"
	"github.com/sirupsen/logrus"
)

type seedProduct struct {
	name     string
	category string
	aliases  []string
}

var categoryTree = map[string][]string{
	"Nabiał":    {"Mleko", "Sery", "Jogurty"},
	"Pieczywo":  {},
	"Napoje":    {"Soki", "Woda"},
	"Warzywa":   {},
	"Owoce":     {},
	"Mięso":     {"Wędliny"},
	"Chemia":    {},
	"Słodycze":  {},
	"Alkohol":   {},
}

var products = []seedProduct{
	{"Mleko 3.2% 1L", "Mleko", []string{"mleko 3.2% 1l", "mleko 3,2 1l", "mleko uht 3.2"}},
	{"Masło extra 200g", "Nabiał", []string{"maslo extra 200g", "masło ekstra"}},
	{"Chleb pszenny", "Pieczywo", []string{"chleb pszenny", "chleb pszen. kraj"}},
	{"Bułka kajzerka", "Pieczywo", []string{"bulka kajzerka", "kajzerka"}},
	{"Sok pomarańczowy 1L", "Soki", []string{"sok pomaranczowy 1l", "sok pomar. 100%"}},
	{"Woda mineralna 1.5L", "Woda", []string{"woda mineralna 1.5l", "woda niegaz 1,5l"}},
	{"Jogurt naturalny 400g", "Jogurty", []string{"jogurt naturalny 400g", "jogurt nat."}},
	{"Szynka krojona 100g", "Wędliny", []string{"szynka krojona", "szynka kroj. 100g"}},
}

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	err = db.AutoMigrate(
		&models.Category{},
		&models.CanonicalProduct{},
		&models.ProductAlias{},
		&models.ProductCandidate{},
		&models.Receipt{},
		&models.LineItem{},
	)
	if err != nil {
		log.WithError(err).Fatal("Migration failed")
	}

	store := storage.New(db, log)
	ctx := context.Background()

	if _, err := store.GetOrCreateCategory(ctx, cfg.Normalization.FallbackCategory); err != nil {
		log.WithError(err).Fatal("Failed to create fallback category")
	}

	for parent, children := range categoryTree {
		root, err := store.GetOrCreateCategory(ctx, parent)
		if err != nil {
			log.WithError(err).WithField("category", parent).Fatal("Failed to create category")
		}
		for _, child := range children {
			if _, err := store.CreateCategory(ctx, child, &root.ID); err != nil {
				log.WithError(err).WithField("category", child).Warn("Skipping subcategory")
			}
		}
	}
	log.Info("Category tree seeded")

	for _, sp := range products {
		cat, err := store.GetOrCreateCategory(ctx, sp.category)
		if err != nil {
			log.WithError(err).WithField("category", sp.category).Fatal("Failed to resolve category")
		}
		product, err := store.GetOrCreateProduct(ctx, sp.name, cat.ID)
		if err != nil {
			log.WithError(err).WithField("product", sp.name).Fatal("Failed to create product")
		}
		for _, alias := range sp.aliases {
			if err := store.UpsertAlias(ctx, textutil.Normalize(alias), product.ID, nil, nil); err != nil {
				log.WithError(err).WithField("alias", alias).Warn("Skipping alias")
			}
		}
		log.WithFields(logrus.Fields{
			"product": sp.name,
			"aliases": len(sp.aliases),
		}).Info("Product seeded")
	}

	log.Info("Seeding complete")
}
